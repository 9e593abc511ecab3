package amqp

import "testing"

func TestCursorPutGetRoundtrip(t *testing.T) {
	tr := NewTree()
	c := tr.Cursor()

	if err := c.PutBool(true); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := c.PutUlong(12345); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := c.PutString("hello"); err != nil {
		t.Fatalf("%+v", err)
	}

	c.Rewind()

	if !c.Next() {
		t.Fatal("expected a first value")
	}
	if got, err := c.GetBool(); err != nil || got != true {
		t.Fatalf("got %v, %+v", got, err)
	}
	if !c.Next() {
		t.Fatal("expected a second value")
	}
	if got, err := c.GetUlong(); err != nil || got != 12345 {
		t.Fatalf("got %v, %+v", got, err)
	}
	if !c.Next() {
		t.Fatal("expected a third value")
	}
	if got, err := c.GetString(); err != nil || got != "hello" {
		t.Fatalf("got %q, %+v", got, err)
	}
	if c.Next() {
		t.Fatal("expected no fourth value")
	}
}

func TestCursorGetWrongTag(t *testing.T) {
	tr := NewTree()
	c := tr.Cursor()
	if err := c.PutInt(7); err != nil {
		t.Fatalf("%+v", err)
	}
	c.Rewind()
	c.Next()
	if _, err := c.GetLong(); err == nil {
		t.Fatal("expected a mismatch error")
	} else if ae, ok := err.(*Error); !ok || ae.Kind != KindEncoding {
		t.Fatalf("expected KindEncoding, got %+v", err)
	}
}

func TestCursorListNesting(t *testing.T) {
	tr := NewTree()
	c := tr.Cursor()

	if err := c.PutList(); err != nil {
		t.Fatalf("%+v", err)
	}
	if !c.Enter() {
		t.Fatal("expected Enter to succeed on a list")
	}
	if err := c.PutInt(1); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := c.PutInt(2); err != nil {
		t.Fatalf("%+v", err)
	}
	c.Exit()

	c.Rewind()
	if !c.Next() {
		t.Fatal("expected the list")
	}
	if c.Type() != TagList {
		t.Fatalf("expected TagList, got %s", c.Type())
	}
	if c.Count() != 2 {
		t.Fatalf("expected 2 children, got %d", c.Count())
	}
	if !c.Enter() {
		t.Fatal("expected Enter to succeed")
	}
	var sum int32
	for c.Next() {
		v, err := c.GetInt()
		if err != nil {
			t.Fatalf("%+v", err)
		}
		sum += v
	}
	c.Exit()
	if sum != 3 {
		t.Fatalf("expected sum 3, got %d", sum)
	}
}

func TestCursorArrayElementTagEnforced(t *testing.T) {
	tr := NewTree()
	c := tr.Cursor()
	if err := c.PutArray(TagInt); err != nil {
		t.Fatalf("%+v", err)
	}
	if !c.Enter() {
		t.Fatal("expected Enter to succeed on an array")
	}
	if err := c.PutInt(1); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := c.PutString("oops"); err == nil {
		t.Fatal("expected a tag mismatch error for a wrong-typed array element")
	}
}

func TestCursorCopyDeepCopies(t *testing.T) {
	src := NewTree()
	sc := src.Cursor()
	if err := sc.PutBinary([]byte{1, 2, 3}); err != nil {
		t.Fatalf("%+v", err)
	}
	sc.Rewind()
	sc.Next()

	dst := NewTree()
	dc := dst.Cursor()
	if err := sc.Copy(dc); err != nil {
		t.Fatalf("%+v", err)
	}

	// Mutate the source's underlying bytes and confirm the copy is unaffected.
	b, _ := sc.GetBinary()
	b[0] = 0xff

	dc.Rewind()
	dc.Next()
	got, err := dc.GetBinary()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if got[0] != 1 {
		t.Fatalf("expected copy to be independent of source, got %v", got)
	}
}

func TestTreeClear(t *testing.T) {
	tr := NewTree()
	c := tr.Cursor()
	c.PutNull()
	tr.Clear()
	c.Rewind()
	if c.Next() {
		t.Fatal("expected an empty tree after Clear")
	}
}

func TestPutCharRejectsSurrogates(t *testing.T) {
	tr := NewTree()
	c := tr.Cursor()
	if err := c.PutChar(0xD800); err == nil {
		t.Fatal("expected an error for a surrogate code point")
	}
}

func TestPutSymbolRejectsNonASCII(t *testing.T) {
	tr := NewTree()
	c := tr.Cursor()
	if err := c.PutSymbol("caf\xc3\xa9"); err == nil {
		t.Fatal("expected an error for a non-ASCII symbol")
	}
}

func TestPutStringRejectsInvalidUTF8(t *testing.T) {
	tr := NewTree()
	c := tr.Cursor()
	if err := c.PutString("\xff\xfe"); err == nil {
		t.Fatal("expected an error for invalid UTF-8")
	}
}
