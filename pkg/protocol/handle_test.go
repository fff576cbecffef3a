package protocol

import (
	"math"
	"testing"
)

func TestParseHandle(t *testing.T) {
	grid := []struct {
		name string
		text string
		want Handle
	}{
		{name: "bare integer", text: "42", want: 42},
		{name: "bare integer with newline", text: "42\n", want: 42},
		{name: "handle key", text: `{"handle": 7}`, want: 7},
		{name: "capitalized key", text: `{"Handle":12}`, want: 12},
		{name: "nested id", text: `{"result":{"id": 9}}`, want: 9},
		{name: "quoted value", text: `{"network_handle":"15"}`, want: 15},
		{name: "short key", text: `{"ok":true,"h":3}`, want: 3},
		{name: "key priority", text: `{"id":4,"handle":5}`, want: 5},
		{name: "second pass inside result", text: `{"handle":"n/a","result":{"handle":21}}`, want: 21},
		{name: "negative passes through", text: `{"handle":-3}`, want: -3},
		{name: "not json", text: "not json", want: InvalidHandle},
		{name: "empty", text: "", want: InvalidHandle},
		{name: "trailing garbage", text: "42abc", want: InvalidHandle},
		{name: "key without value", text: `{"handle":null}`, want: InvalidHandle},
		{name: "overflow saturates", text: "99999999999999999999", want: Handle(math.MaxInt64)},
	}

	for _, g := range grid {
		t.Run(g.name, func(t *testing.T) {
			got := ParseHandle(g.text)
			if got != g.want {
				t.Errorf("ParseHandle(%q) = %d, expected %d", g.text, got, g.want)
			}
		})
	}
}

func TestHandleValid(t *testing.T) {
	if InvalidHandle.Valid() {
		t.Errorf("InvalidHandle must not be valid")
	}
	if Handle(0).Valid() {
		t.Errorf("zero handle must not be valid")
	}
	if !Handle(1).Valid() {
		t.Errorf("positive handle must be valid")
	}
}
