package paramgraph

import (
	"bytes"
	"strings"
)

// TypeDef describes the value type carried by a variable or pin.
// Two TypeDefs are the same type when their names match.
type TypeDef struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Built-in types.
var (
	TypeFloat        = TypeDef{Name: "float", Size: 4}
	TypeVec2         = TypeDef{Name: "vec2", Size: 8}
	TypeVec3         = TypeDef{Name: "vec3", Size: 12}
	TypeVec4         = TypeDef{Name: "vec4", Size: 16}
	TypeColor        = TypeDef{Name: "color", Size: 16}
	TypeQuat         = TypeDef{Name: "quat", Size: 16}
	TypeInt          = TypeDef{Name: "int", Size: 4}
	TypeBool         = TypeDef{Name: "bool", Size: 4}
	TypeParameterMap = TypeDef{Name: "ParameterMap"}
)

var builtinTypes = []TypeDef{
	TypeFloat, TypeVec2, TypeVec3, TypeVec4, TypeColor, TypeQuat, TypeInt, TypeBool, TypeParameterMap,
}

// ParseTypeDef looks up a built-in type by name.
func ParseTypeDef(name string) (TypeDef, bool) {
	for _, t := range builtinTypes {
		if t.Name == name {
			return t, true
		}
	}
	return TypeDef{}, false
}

// IsValid reports whether t names a type.
func (t TypeDef) IsValid() bool { return t.Name != "" }

// IsParameterMap reports whether t is the parameter map type.
func (t TypeDef) IsParameterMap() bool { return t.Name == TypeParameterMap.Name }

// Same reports whether t and o are the same type.
func (t TypeDef) Same(o TypeDef) bool { return t.Name == o.Name }

func (t TypeDef) String() string { return t.Name }

// Namespaces understood by the engine.
const (
	NamespaceParticles = "Particles"
	NamespaceEmitter   = "Emitter"
	NamespaceSystem    = "System"
	NamespaceEngine    = "Engine"
	NamespaceUser      = "User"
	NamespaceModule    = "Module"
	NamespaceInitial   = "Initial"
)

// Variable is a typed, namespaced identifier such as "Particles.Position : vec3".
// Name holds the full dotted name; the namespace is everything before the last dot.
type Variable struct {
	Name    string  `json:"name"`
	Type    TypeDef `json:"type"`
	Default []byte  `json:"default,omitempty"`
}

// NewVariable returns a variable without default data.
func NewVariable(t TypeDef, name string) Variable {
	return Variable{Name: name, Type: t}
}

// Namespace returns the dotted prefix of the name, or "" when there is none.
func (v Variable) Namespace() string {
	i := strings.LastIndexByte(v.Name, '.')
	if i < 0 {
		return ""
	}
	return v.Name[:i]
}

// BaseName returns the last segment of the name.
func (v Variable) BaseName() string {
	i := strings.LastIndexByte(v.Name, '.')
	if i < 0 {
		return v.Name
	}
	return v.Name[i+1:]
}

// Segments splits the name on dots.
func (v Variable) Segments() []string {
	return strings.Split(v.Name, ".")
}

// Equal reports whether name, type and default data all match.
func (v Variable) Equal(o Variable) bool {
	return v.Equivalent(o) && bytes.Equal(v.Default, o.Default)
}

// Equivalent reports whether name and type match, ignoring default data.
func (v Variable) Equivalent(o Variable) bool {
	return v.Name == o.Name && v.Type.Same(o.Type)
}

// Less orders variables by name, then type name.
func (v Variable) Less(o Variable) bool {
	if v.Name != o.Name {
		return v.Name < o.Name
	}
	return v.Type.Name < o.Type.Name
}

// SetDefault stores a copy of data as the default value.
func (v *Variable) SetDefault(data []byte) {
	if data == nil {
		v.Default = nil
		return
	}
	v.Default = append([]byte(nil), data...)
}

// HasDefault reports whether default data has been assigned.
func (v Variable) HasDefault() bool { return len(v.Default) > 0 }

func (v Variable) String() string {
	return v.Name + " : " + v.Type.Name
}

// IsInNamespace reports whether the variable's first segment is ns.
func IsInNamespace(v Variable, ns string) bool {
	return strings.HasPrefix(v.Name, ns+".")
}

// IsAttribute reports whether v is a per-particle attribute.
func IsAttribute(v Variable) bool {
	return IsInNamespace(v, NamespaceParticles)
}

// IsExternalConstant reports whether v is provided from outside the script
// (engine or user parameters) rather than computed by it.
func IsExternalConstant(v Variable) bool {
	return IsInNamespace(v, NamespaceEngine) || IsInNamespace(v, NamespaceUser)
}

// IsModuleParameter reports whether v is in the Module namespace, which is
// aliased to the calling function's name.
func IsModuleParameter(v Variable) bool {
	return IsInNamespace(v, NamespaceModule)
}

// IsInitialValue reports whether v reads the spawn-time value of another
// variable, e.g. "Initial.Particles.Position".
func IsInitialValue(v Variable) bool {
	return IsInNamespace(v, NamespaceInitial) && strings.Count(v.Name, ".") >= 2
}

// InitialValueSource returns the variable an Initial.* variable reads from.
func InitialValueSource(v Variable) Variable {
	if !IsInitialValue(v) {
		return v
	}
	return Variable{Name: strings.TrimPrefix(v.Name, NamespaceInitial+"."), Type: v.Type}
}

// FrameKind tells what kind of namespace marker a scope frame is.
type FrameKind uint8

const (
	FrameFunction FrameKind = iota + 1
	FrameEmitter
)

// ScopeFrame is one "enter X" namespace marker.
type ScopeFrame struct {
	Kind FrameKind `json:"kind"`
	Name string    `json:"name"`
}

// Scope is the stack of namespace markers active when a pin was recorded.
// It only affects how names are displayed; stored variable names are never rewritten.
type Scope []ScopeFrame

func (s Scope) innermost(kind FrameKind) (string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Kind == kind {
			return s[i].Name, true
		}
	}
	return "", false
}

// Qualify resolves aliased namespaces in name: "Module." becomes the innermost
// function name and "Emitter." the innermost emitter name.
func (s Scope) Qualify(name string) string {
	switch {
	case strings.HasPrefix(name, NamespaceModule+"."):
		if fn, ok := s.innermost(FrameFunction); ok {
			return fn + name[len(NamespaceModule):]
		}
	case strings.HasPrefix(name, NamespaceEmitter+"."):
		if em, ok := s.innermost(FrameEmitter); ok {
			return em + name[len(NamespaceEmitter):]
		}
	}
	return name
}

// String renders the scope as a dotted path.
func (s Scope) String() string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return strings.Join(names, ".")
}

func (s Scope) clone() Scope {
	if len(s) == 0 {
		return nil
	}
	return append(Scope(nil), s...)
}
