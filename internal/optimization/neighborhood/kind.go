package neighborhood

import (
	"fmt"
	"strings"
)

// Kind enumerates the move variants. The set is closed.
type Kind int

const (
	KindShift Kind = iota
	KindShiftSmart
	KindSimpleSwap
	KindSimpleSwapSmart
	KindSwap
	KindSwapSmart
	KindSwitch
	KindSwitchSmart
	KindTaskMove
	KindTaskMoveSmart
	KindTwoShift
	KindTwoShiftSmart
)

var kindNames = [...]string{
	KindShift:           "Shift",
	KindShiftSmart:      "ShiftSmart",
	KindSimpleSwap:      "SimpleSwap",
	KindSimpleSwapSmart: "SimpleSwapSmart",
	KindSwap:            "Swap",
	KindSwapSmart:       "SwapSmart",
	KindSwitch:          "Switch",
	KindSwitchSmart:     "SwitchSmart",
	KindTaskMove:        "TaskMove",
	KindTaskMoveSmart:   "TaskMoveSmart",
	KindTwoShift:        "TwoShift",
	KindTwoShiftSmart:   "TwoShiftSmart",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Smart reports whether k searches the best target instead of a random one.
func (k Kind) Smart() bool { return k%2 == 1 }

// Family returns the neighbourhood family of k.
func (k Kind) Family() Family {
	return families[k/2]
}

// Family groups a plain kind with its smart counterpart. Families are the unit
// users enable or disable.
type Family string

const (
	FamilyShift      Family = "shift"
	FamilySimpleSwap Family = "direct-swap"
	FamilySwap       Family = "swap"
	FamilySwitch     Family = "switch"
	FamilyTaskMove   Family = "task-move"
	FamilyTwoShift   Family = "two-shift"
)

var families = [...]Family{
	FamilyShift,
	FamilySimpleSwap,
	FamilySwap,
	FamilySwitch,
	FamilyTaskMove,
	FamilyTwoShift,
}

// Families returns all families in registration order.
func Families() []Family {
	return append([]Family(nil), families[:]...)
}

// ParseFamily maps a user supplied name to its Family.
func ParseFamily(name string) (Family, error) {
	n := Family(strings.ToLower(strings.TrimSpace(name)))
	for _, f := range families {
		if f == n {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown move family %q", name)
}

// Kinds returns the plain and smart kinds of f.
func (f Family) Kinds() (plain, smart Kind) {
	for i, g := range families {
		if g == f {
			return Kind(2 * i), Kind(2*i + 1)
		}
	}
	return -1, -1
}
