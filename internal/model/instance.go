package model

// InstanceStatus is the outcome of selecting a template definition.
type InstanceStatus uint8

const (
	InstanceSelected InstanceStatus = iota
	// InstanceAmbiguous: several partial specializations match and none is
	// more specialized than the others.
	InstanceAmbiguous
	// InstanceCyclic: selection re-entered itself for the same arguments.
	InstanceCyclic
	// InstanceDependent: the arguments still mention template parameters.
	InstanceDependent
	// InstanceInvalid: the arguments do not fit the primary's parameters.
	InstanceInvalid
)

func (s InstanceStatus) String() string {
	switch s {
	case InstanceSelected:
		return "selected"
	case InstanceAmbiguous:
		return "ambiguous"
	case InstanceCyclic:
		return "cyclic"
	case InstanceDependent:
		return "dependent"
	default:
		return "invalid"
	}
}

// Binding is the value a template parameter takes in an instance. Packs
// bind zero or more values.
type Binding struct {
	Name   string
	Values []*TypeExpr
	Pack   bool
}

// PrimaryIndex marks an instance that uses the primary definition.
const PrimaryIndex = -1

// Instance is a template used with a concrete argument list.
type Instance struct {
	Template ID
	Args     []*TypeExpr
	Key      string
	Status   InstanceStatus

	// Body is the chosen definition: the primary entity or the body of a
	// specialization. UnknownID unless Status is InstanceSelected.
	Body ID
	// Specialization indexes TemplateInfo.Specializations, or PrimaryIndex.
	Specialization int
	Explicit       bool
	Bindings       []Binding
	// Candidates lists the specialization indexes involved in an
	// ambiguity.
	Candidates []int
}

// Binding returns the binding of the named parameter.
func (in *Instance) Binding(name string) (Binding, bool) {
	for _, b := range in.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}
