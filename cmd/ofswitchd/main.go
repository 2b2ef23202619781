// Command ofswitchd runs a standalone software OpenFlow switch: a TCP
// control channel wired to a classifier chain and a set of loopback
// ports, for exercising the datapath package against a live
// controller without any real network hardware.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/netrack/ofswitch/datapath"
	"github.com/netrack/ofswitch/flow"
	"github.com/netrack/ofswitch/port"
)

func main() {
	addr := flag.String("addr", ":6633", "address to listen for controller connections on")
	dpid := flag.Uint64("dpid", 1, "datapath id reported in FEATURES_REPLY")
	numPorts := flag.Int("ports", 2, "number of loopback ports to bring up (rounded down to an even number)")
	learning := flag.Bool("learning", false, "check a MAC-learning table ahead of the hash/linear tables")
	flag.Parse()

	logger := log.New(os.Stderr, "ofswitchd: ", log.LstdFlags)

	chain := flow.DefaultChain()
	if *learning {
		chain = flow.NewLearningChain()
	}
	dp := datapath.New(*dpid, chain, logger)
	if err := bringUpLoopbackPorts(dp, *numPorts); err != nil {
		logger.Fatalf("bringing up ports: %v", err)
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatalf("listen on %s: %v", *addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Print("shutting down")
		cancel()
		ln.Close()
	}()

	go func() {
		if err := dp.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("datapath run loop: %v", err)
		}
	}()

	logger.Printf("listening on %s, datapath id %#016x", *addr, *dpid)
	if err := dp.Serve(ln); err != nil && ctx.Err() == nil {
		logger.Fatalf("serve: %v", err)
	}
}

// bringUpLoopbackPorts registers n/2 loopback pairs (n ports total,
// rounded down to even) on dp, each pair wired to each other so a
// frame sent out one port is immediately receivable on its peer.
func bringUpLoopbackPorts(dp *datapath.Datapath, n int) error {
	for i := 1; i+1 <= n; i += 2 {
		a, b := port.NewLoopbackPair(
			"veth"+strconv.Itoa(i), "veth"+strconv.Itoa(i+1),
			loopbackHWAddr(i), loopbackHWAddr(i+1),
		)
		if _, err := dp.AddPort(port.Number(i), a); err != nil {
			return err
		}
		if _, err := dp.AddPort(port.Number(i+1), b); err != nil {
			return err
		}
	}
	return nil
}

// loopbackHWAddr builds a locally-administered, deterministic MAC
// address for a loopback port, so restarting ofswitchd doesn't
// reshuffle port identities a controller may have cached.
func loopbackHWAddr(portNo int) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, byte(portNo)}
}
