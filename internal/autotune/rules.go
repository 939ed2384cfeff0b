package autotune

import (
	"fmt"
	"strings"
	"time"

	"github.com/san-kum/relaytune/internal/control"
	"github.com/san-kum/relaytune/internal/dynamo"
)

type ControlType int

const (
	PI ControlType = iota
	PID
)

func (c ControlType) String() string {
	switch c {
	case PI:
		return "pi"
	case PID:
		return "pid"
	default:
		return fmt.Sprintf("ControlType(%d)", int(c))
	}
}

func (c ControlType) Valid() bool {
	return c == PI || c == PID
}

func ParseControlType(s string) (ControlType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pi":
		return PI, nil
	case "pid":
		return PID, nil
	}
	return 0, fmt.Errorf("%w: unknown control type %q", dynamo.ErrInvalidArgument, s)
}

// rule holds Ziegler-Nichols style coefficients: Kp = p*Ku, Ki = i*Ku/Pu, Kd = d*Ku*Pu.
type rule struct {
	p, i, d float64
}

var rules = map[ControlType]rule{
	PI:  {p: 0.4, i: 0.48, d: 0},
	PID: {p: 0.6, i: 1.2, d: 0.075},
}

// GainsFor derives controller gains from the ultimate gain ku and ultimate period pu.
func GainsFor(ku float64, pu time.Duration, ct ControlType) (control.Gains, error) {
	r, ok := rules[ct]
	if !ok {
		return control.Gains{}, fmt.Errorf("%w: unknown control type %d", dynamo.ErrInvalidArgument, int(ct))
	}
	if pu <= 0 {
		return control.Gains{}, fmt.Errorf("%w: ultimate period must be positive, got %s", dynamo.ErrInvalidArgument, pu)
	}
	sec := pu.Seconds()
	return control.Gains{
		Kp: r.p * ku,
		Ki: r.i * ku / sec,
		Kd: r.d * ku * sec,
	}, nil
}
