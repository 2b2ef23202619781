package datapath

import (
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/port"
)

// switchOutputs implements action.Outputs against a Datapath's port
// set and control channel. Execute calls it while dp.mu is already
// held, so it must never itself try to acquire dp.mu.
type switchOutputs struct {
	dp *Datapath
}

func (o *switchOutputs) Port(no port.Number, frame []byte) error {
	p, ok := o.dp.Ports.Get(no)
	if !ok {
		return port.ErrNotFound
	}
	if !p.Forwardable() {
		return nil
	}
	return p.Send(frame)
}

func (o *switchOutputs) Flood(ingress port.Number, frame []byte) error {
	for _, p := range o.dp.Ports.Flood(ingress) {
		if err := p.Send(frame); err != nil {
			o.dp.Logger.Printf("datapath: flood to port %d: %v", p.No, err)
		}
	}
	return nil
}

func (o *switchOutputs) All(ingress port.Number, frame []byte) error {
	for _, p := range o.dp.Ports.All(ingress) {
		if err := p.Send(frame); err != nil {
			o.dp.Logger.Printf("datapath: output(all) to port %d: %v", p.No, err)
		}
	}
	return nil
}

func (o *switchOutputs) Controller(ingress port.Number, frame []byte) error {
	o.dp.packetIn(ingress, frame, ofp.PacketInReasonAction)
	return nil
}

// Table resubmits frame back through the classifier. The caller
// (action.Execute) always runs with dp.mu already held, so this calls
// the lock-free core directly rather than Datapath.receive.
func (o *switchOutputs) Table(ingress port.Number, frame []byte) error {
	o.dp.receiveLocked(ingress, frame)
	return nil
}
