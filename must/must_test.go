// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package must

import (
	"fmt"
	"testing"
)

func TestMust(t *testing.T) {
	var (
		depth int
		args  []interface{}
	)
	Func = func(d int, v ...interface{}) {
		depth = d
		args = v
	}
	Nil(nil)
	if args != nil {
		t.Errorf("unexpected call: %v", args)
	}
	err := fmt.Errorf("test error")
	Nil(err, "context")
	if got, want := fmt.Sprint(args...), "context: test error"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := depth, 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	args = nil
	True(true)
	if args != nil {
		t.Errorf("unexpected call: %v", args)
	}
	Truef(false, "value was %d", 42)
	if got, want := fmt.Sprint(args...), "value was 42"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
