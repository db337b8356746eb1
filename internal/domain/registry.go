package domain

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Registration binds a message type name to its payload shape.
type Registration struct {
	Prototype any
	Name      string
}

// Registry is an immutable mapping from message type name to payload type.
// It is built once at startup and shared by reference.
type Registry struct {
	types map[string]reflect.Type
}

// NewRegistry builds a registry. Duplicate names are rejected here rather than at lookup.
func NewRegistry(regs ...Registration) (*Registry, error) {
	types := make(map[string]reflect.Type, len(regs))

	for _, reg := range regs {
		if reg.Name == "" || reg.Prototype == nil {
			return nil, NewError(KindInvalidArgument, "registration needs a name and a prototype")
		}
		if _, exists := types[reg.Name]; exists {
			return nil, WrapError(KindInvalidArgument, ErrDuplicateType, "type %q registered twice", reg.Name)
		}

		t := reflect.TypeOf(reg.Prototype)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		types[reg.Name] = t
	}

	return &Registry{types: types}, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.types[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode unmarshals raw into a new value of the registered type and returns a pointer to it.
func (r *Registry) Decode(name string, raw json.RawMessage) (any, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, WrapError(KindInvalidArgument, ErrUnknownEventType, "type %q", name)
	}

	v := reflect.New(t)
	if err := json.Unmarshal(raw, v.Interface()); err != nil {
		return nil, WrapError(KindInvalidArgument, err, "decode %q payload", name)
	}

	return v.Interface(), nil
}

// Check verifies that payload has the type registered under name.
func (r *Registry) Check(name string, payload any) error {
	t, ok := r.types[name]
	if !ok {
		return WrapError(KindInvalidArgument, ErrUnknownEventType, "type %q", name)
	}

	pt := reflect.TypeOf(payload)
	if pt != nil && pt.Kind() == reflect.Pointer {
		pt = pt.Elem()
	}
	if pt != t {
		return NewError(KindInvalidArgument, "payload %v does not match %q", pt, name)
	}

	return nil
}

// NewEventRegistry returns the registry of outbound events.
func NewEventRegistry() (*Registry, error) {
	return NewRegistry(
		Registration{Name: string(EventDepositConfirmed), Prototype: DepositConfirmedPayload{}},
		Registration{Name: string(EventDepositFailed), Prototype: DepositFailedPayload{}},
		Registration{Name: string(EventPayoutCompleted), Prototype: SettlementCompletedPayload{}},
		Registration{Name: string(EventPayoutDeferred), Prototype: SettlementDeferredPayload{}},
		Registration{Name: string(EventPayoutFailed), Prototype: SettlementFailedPayload{}},
		Registration{Name: string(EventRefundCompleted), Prototype: SettlementCompletedPayload{}},
		Registration{Name: string(EventRefundDeferred), Prototype: SettlementDeferredPayload{}},
		Registration{Name: string(EventRefundFailed), Prototype: SettlementFailedPayload{}},
		Registration{Name: string(EventLateDeposit), Prototype: LateDepositPayload{}},
		Registration{Name: string(EventReconciliationResult), Prototype: ReconciliationResultPayload{}},
		Registration{Name: string(EventDustSwept), Prototype: DustSweptPayload{}},
	)
}

// NewCommandRegistry returns the registry of inbound settlement commands.
func NewCommandRegistry() (*Registry, error) {
	return NewRegistry(
		Registration{Name: CommandExecutePayout, Prototype: ExecutePayoutCommand{}},
		Registration{Name: CommandExecuteRefund, Prototype: ExecuteRefundCommand{}},
		Registration{Name: CommandWatchDeposit, Prototype: WatchDepositCommand{}},
	)
}
