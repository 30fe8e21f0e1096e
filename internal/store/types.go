package store

// Export domain types. IDs of entity rows are the model's entity IDs, so
// rows written by one export refer to each other without remapping.

type File struct {
	ID       int64
	Path     string
	Ordinal  int
	Preamble string
}

type Entity struct {
	ID            int64
	Kind          string
	Name          string
	QualifiedName string
	OwnerID       *int64
	// Ordinal is the position among the owner's listed members; -1 for
	// entities reached only through their template.
	Ordinal       int
	File          string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
	Doc           string
	Detail        string
	SignatureHash string
}

type Attribute struct {
	ID        int64
	EntityID  int64
	Ordinal   int
	Namespace string
	Name      string
	// Arguments is nil for an attribute without an argument clause.
	Arguments []string
}

type Directive struct {
	ID       int64
	EntityID int64
	Ordinal  int
	Name     string
	Value    string
	HasValue bool
	Known    bool
}

type TypeMember struct {
	ID           int64
	EntityID     int64
	MemberID     int64
	Ordinal      int
	Name         string
	TypeExpr     string
	Access       string
	TypeEntityID *int64
}

type FunctionParam struct {
	ID       int64
	EntityID int64
	Ordinal  int
	Name     string
	TypeExpr string
	Default  string
}

type TemplateParam struct {
	ID        int64
	EntityID  int64
	Ordinal   int
	Name      string
	ParamKind string
	Specifier string
	TypeExpr  string
	Default   string
	Variadic  bool
}

type Reference struct {
	ID         int64
	OwnerID    int64
	ScopeID    int64
	Name       string
	Context    string
	Status     string
	TargetID   *int64
	DeclaredID *int64
}

type Specialization struct {
	ID         int64
	TemplateID int64
	Ordinal    int
	Pattern    string
	Explicit   bool
	BodyID     int64
}

type Instance struct {
	ID             int64
	TemplateID     int64
	Args           string
	Status         string
	BodyID         *int64
	Specialization int
}

type Diagnostic struct {
	ID       int64
	Code     string
	Message  string
	EntityID *int64
	File     string
	Line     int
	Col      int
}
