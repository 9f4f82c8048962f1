package identity

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestIdentity_String(t *testing.T) {
	tests := []struct {
		id   Identity
		want string
	}{
		{Known("alice"), "alice"},
		{Unknown(), "Unknown Driver"},
		{NoFace(), "No Face"},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.id.Kind, got, tt.want)
		}
	}
}

func TestIdentity_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Known("bob"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"bob"` {
		t.Errorf("got %s", data)
	}
}

func TestCell_NeverSet(t *testing.T) {
	var c Cell
	if _, ok := c.Get(); ok {
		t.Error("fresh cell reports a value")
	}
	if c.Name() != nil {
		t.Error("fresh cell should have a nil name")
	}
}

func TestCell_UpdateOnlyOnChange(t *testing.T) {
	var c Cell

	if !c.Update(NoFace()) {
		t.Error("first update should write")
	}
	if c.Update(NoFace()) {
		t.Error("identical update should not write")
	}
	if !c.Update(Known("alice")) {
		t.Error("changed update should write")
	}
	if c.Update(Known("alice")) {
		t.Error("identical label should not write")
	}
	if !c.Update(Known("bob")) {
		t.Error("different label should write")
	}

	name := c.Name()
	if name == nil || *name != "bob" {
		t.Errorf("Name() = %v, want bob", name)
	}
}

func TestCell_Set(t *testing.T) {
	var c Cell
	c.Set(Unknown())
	id, ok := c.Get()
	if !ok || id != Unknown() {
		t.Errorf("Get() = %v, %v", id, ok)
	}
}

func TestCell_ConcurrentReaders(t *testing.T) {
	var c Cell
	labels := []Identity{Known("a"), Known("b"), Unknown(), NoFace()}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if name := c.Name(); name != nil && *name == "" {
					t.Error("reader observed an empty name")
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		c.Update(labels[i%len(labels)])
	}
	close(stop)
	wg.Wait()
}
