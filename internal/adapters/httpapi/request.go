package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type predictRequest struct {
	Ticker string  `json:"ticker" form:"ticker"`
	Days   flexInt `json:"days" form:"days"`
}

// flexInt accepts an integer written as a JSON number, a numeric JSON string
// or a form value, and records whether it was present at all.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("days must be a whole number, got %v", v)
		}
		f.value, f.set = int(v), true
		return nil
	case string:
		return f.UnmarshalParam(v)
	default:
		return fmt.Errorf("days must be a number, got %s", b)
	}
}

// UnmarshalParam implements gin's binding.BindUnmarshaler for form values.
func (f *flexInt) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		return nil
	}
	n, err := strconv.Atoi(param)
	if err != nil {
		return fmt.Errorf("days must be an integer, got %q", param)
	}
	f.value, f.set = n, true
	return nil
}
