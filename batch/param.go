package batch

import (
	"fmt"
	"strconv"
	"time"
)

// ParamKind identifies the value kind held by a Param.
type ParamKind int

const (
	KindText ParamKind = iota
	KindFloat
	KindInt
	KindTime
)

// String returns the kind name used in canonical key encoding.
func (k ParamKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Param is a closed tagged union over the supported job parameter kinds.
// The zero value is an empty text parameter. Construct values with
// TextParam, FloatParam, IntParam or TimeParam; a caller-built Param is
// itself accepted wherever an untyped value is classified, covering the
// pre-typed parameter case.
type Param struct {
	kind ParamKind
	text string
	f    float64
	i    int64
	t    time.Time
}

// TextParam returns a text parameter.
func TextParam(s string) Param {
	return Param{kind: KindText, text: s}
}

// FloatParam returns a floating-point parameter.
func FloatParam(f float64) Param {
	return Param{kind: KindFloat, f: f}
}

// IntParam returns an integer parameter.
func IntParam(i int64) Param {
	return Param{kind: KindInt, i: i}
}

// TimeParam returns a timestamp parameter. The timestamp is stored in UTC.
func TimeParam(t time.Time) Param {
	return Param{kind: KindTime, t: t.UTC()}
}

// Kind returns the value kind.
func (p Param) Kind() ParamKind { return p.kind }

// Text returns the text value. Meaningful only when Kind is KindText.
func (p Param) Text() string { return p.text }

// Float returns the floating-point value. Meaningful only when Kind is KindFloat.
func (p Param) Float() float64 { return p.f }

// Int returns the integer value. Meaningful only when Kind is KindInt.
func (p Param) Int() int64 { return p.i }

// Time returns the timestamp value. Meaningful only when Kind is KindTime.
func (p Param) Time() time.Time { return p.t }

// Equal reports whether two parameters hold the same kind and value.
func (p Param) Equal(other Param) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case KindText:
		return p.text == other.text
	case KindFloat:
		return p.f == other.f
	case KindInt:
		return p.i == other.i
	case KindTime:
		return p.t.Equal(other.t)
	default:
		return false
	}
}

// String returns a human-readable rendering, e.g. "text(us-east)".
func (p Param) String() string {
	return fmt.Sprintf("%s(%s)", p.kind, p.encode())
}

// encode renders the value deterministically for key construction.
func (p Param) encode() string {
	switch p.kind {
	case KindText:
		return p.text
	case KindFloat:
		return strconv.FormatFloat(p.f, 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(p.i, 10)
	case KindTime:
		return strconv.FormatInt(p.t.UnixNano(), 10)
	default:
		return ""
	}
}

// classifyValue maps an untyped value onto a Param. A Param passes through
// unchanged. Returns ErrUnsupportedParameterType for anything else.
func classifyValue(value any) (Param, error) {
	switch v := value.(type) {
	case Param:
		return v, nil
	case string:
		return TextParam(v), nil
	case float32:
		return FloatParam(float64(v)), nil
	case float64:
		return FloatParam(v), nil
	case int:
		return IntParam(int64(v)), nil
	case int32:
		return IntParam(int64(v)), nil
	case int64:
		return IntParam(v), nil
	case time.Time:
		return TimeParam(v), nil
	default:
		return Param{}, unsupportedParameterTypeError(value)
	}
}
