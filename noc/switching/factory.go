package switching

import "fmt"

// NewProtocol constructs a switching Protocol by name. Valid names:
// "wormhole" (default), "saf", "vct". Panics on unrecognized names,
// matching the teacher's NewSchedulerByName/NewRoutingPolicy factories.
func NewProtocol(name string) Protocol {
	switch name {
	case "", "wormhole":
		return NewWormhole()
	case "saf":
		return NewStoreAndForward()
	case "vct":
		return NewVirtualCutThrough()
	default:
		panic(fmt.Sprintf("unknown switching protocol %q", name))
	}
}
