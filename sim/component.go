package sim

import "fmt"

// ComponentKind identifies a raw component produced by inspectors.
// Components carry no state; the kind is a tag.
type ComponentKind int

const (
	C1 ComponentKind = iota + 1
	C2
	C3
)

// ComponentKinds lists every component kind in declaration order.
var ComponentKinds = []ComponentKind{C1, C2, C3}

var componentNames = map[ComponentKind]string{
	C1: "C1",
	C2: "C2",
	C3: "C3",
}

func (k ComponentKind) String() string {
	if name, ok := componentNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ComponentKind(%d)", int(k))
}

// ParseComponentKind maps a config name ("C1") to its kind.
func ParseComponentKind(name string) (ComponentKind, error) {
	for _, k := range ComponentKinds {
		if componentNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown component kind %q; valid: C1, C2, C3", name)
}

// ProductKind identifies what a workstation assembles. One per workstation.
type ProductKind int

const (
	P1 ProductKind = iota + 1
	P2
	P3
)

// ProductKinds lists every product kind in declaration order.
var ProductKinds = []ProductKind{P1, P2, P3}

var productNames = map[ProductKind]string{
	P1: "P1",
	P2: "P2",
	P3: "P3",
}

func (k ProductKind) String() string {
	if name, ok := productNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ProductKind(%d)", int(k))
}

// ParseProductKind maps a config name ("P1") to its kind.
func ParseProductKind(name string) (ProductKind, error) {
	for _, k := range ProductKinds {
		if productNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown product kind %q; valid: P1, P2, P3", name)
}
