package action

import "github.com/netrack/ofswitch/ofp"

// Validate rejects an action list at FLOW_MOD install time when it
// would loop the switch: an OUTPUT to TABLE or NONE never leaves the
// datapath, and an OUTPUT back out the entry's own ingress port sends
// a packet the switch could immediately reclassify right back to
// itself. Grounded on original_source/datapath/forward.c's add_flow/
// mod_flow pre-insertion action scan.
func Validate(actions ofp.Actions, ingress ofp.PortNo) error {
	for _, act := range actions {
		out, ok := act.(*ofp.ActionOutput)
		if !ok {
			continue
		}
		if out.Port == ofp.PortTable || out.Port == ofp.PortNone || out.Port == ingress {
			return ofp.Error{Type: ofp.ErrTypeBadAction, Code: ofp.ErrCodeBadActionLoop}
		}
	}
	return nil
}
