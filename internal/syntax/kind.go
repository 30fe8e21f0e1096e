package syntax

// Kind is the node kind reported by the front end.
type Kind uint8

const (
	Unknown Kind = iota
	Namespace
	Class
	Struct
	Union
	Enum
	EnumClass
	EnumStruct
	Function
	Method
	Variable
	Field
	Typedef
	UsingAlias
	TemplateWrapper
	Specialization
	Concept
	UsingDirective
	UsingDeclaration
	ExternBlock
)

var kindNames = [...]string{
	Unknown:          "Unknown",
	Namespace:        "Namespace",
	Class:            "Class",
	Struct:           "Struct",
	Union:            "Union",
	Enum:             "Enum",
	EnumClass:        "EnumClass",
	EnumStruct:       "EnumStruct",
	Function:         "Function",
	Method:           "Method",
	Variable:         "Variable",
	Field:            "Field",
	Typedef:          "Typedef",
	UsingAlias:       "UsingAlias",
	TemplateWrapper:  "TemplateWrapper",
	Specialization:   "Specialization",
	Concept:          "Concept",
	UsingDirective:   "UsingDirective",
	UsingDeclaration: "UsingDeclaration",
	ExternBlock:      "ExternBlock",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// ParseKind maps a front-end kind name to a Kind. Unrecognized names map to
// Unknown with ok=false.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return Unknown, false
}

// IsRecord reports whether the kind introduces a class-like body.
func (k Kind) IsRecord() bool {
	return k == Class || k == Struct || k == Union
}

// IsEnum reports whether the kind is any enum flavor.
func (k Kind) IsEnum() bool {
	return k == Enum || k == EnumClass || k == EnumStruct
}
