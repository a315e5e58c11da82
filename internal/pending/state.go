package pending

// State is the lifecycle position of a Cell.
type State uint8

const (
	Idle               State = iota // allocated, not registered
	Armed                           // registered, no result yet
	Ready                           // result present, not yet taken
	Consumed                        // result taken
	AbandonedPending                // coroutine gone, reactor callback outstanding
	AbandonedCancelled              // cancellation succeeded, freed
	Freed                           // released
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Ready:
		return "ready"
	case Consumed:
		return "consumed"
	case AbandonedPending:
		return "abandoned-pending"
	case AbandonedCancelled:
		return "abandoned-cancelled"
	case Freed:
		return "freed"
	default:
		return "unknown"
	}
}

// Owner says which side is responsible for releasing the Cell.
type Owner uint8

const (
	OwnedByCoroutine Owner = iota
	OwnedByReactor
	OwnerFreed
)

func (o Owner) String() string {
	switch o {
	case OwnedByCoroutine:
		return "coroutine"
	case OwnedByReactor:
		return "reactor"
	case OwnerFreed:
		return "freed"
	default:
		return "unknown"
	}
}

type event uint8

const (
	evArm      event = iota // registration accepted, result pending
	evSettle                // registration reported the result itself
	evComplete              // reactor callback
	evTake                  // awaiting side takes the result
	evAbandon               // awaiting side is gone
)

func (e event) String() string {
	switch e {
	case evArm:
		return "arm"
	case evSettle:
		return "settle"
	case evComplete:
		return "complete"
	case evTake:
		return "take"
	case evAbandon:
		return "abandon"
	default:
		return "unknown"
	}
}

// effect is what the caller of transition has to do after the state changed.
type effect uint8

const (
	effNone   effect = 0
	effResume effect = 1 << iota
	effFree
	effCancel
	effLate
)
