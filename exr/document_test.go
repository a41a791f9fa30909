package exr

import (
	"errors"
	"testing"
)

func TestDocumentParts(t *testing.T) {
	a := testPart(t, "a", rgbaSpec(2, 2, CompressionNone))
	b := testPart(t, "b", rgbaSpec(2, 2, CompressionNone))
	c := testPart(t, "c", rgbaSpec(2, 2, CompressionNone))
	doc := testDoc(t, a, b, c)

	if doc.Len() != 3 || doc.PartByName("b") != b || doc.PartByName("x") != nil {
		t.Fatal("lookup failed")
	}
	if err := doc.MovePart(2, 0); err != nil {
		t.Fatal(err)
	}
	for i, want := range []*Part{c, a, b} {
		if got, _ := doc.Part(i); got != want || got.Index() != i {
			t.Errorf("after move, part %d is %q with index %d", i, got.Name(), got.Index())
		}
	}
	if err := doc.RemovePart(1); err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 2 || b.Index() != 1 || a.doc != nil {
		t.Error("remove did not reindex")
	}
	if _, err := doc.Part(2); !errors.Is(err, ErrNoSuchPart) {
		t.Errorf("Part(2) err = %v", err)
	}
	if err := doc.MovePart(0, 5); !errors.Is(err, ErrNoSuchPart) {
		t.Errorf("MovePart err = %v", err)
	}
}

func TestDocumentDuplicateNames(t *testing.T) {
	doc := testDoc(t, testPart(t, "beauty", rgbaSpec(2, 2, CompressionNone)))
	err := doc.AddPart(testPart(t, "beauty", rgbaSpec(2, 2, CompressionNone)))
	if !errors.Is(err, ErrDuplicatePart) {
		t.Errorf("AddPart err = %v", err)
	}
	other := testPart(t, "other", rgbaSpec(2, 2, CompressionNone))
	if err := doc.AddPart(other); err != nil {
		t.Fatal(err)
	}
	err = other.SetAttribute(Attribute{Name: AttrName, Type: TypeString, Value: "beauty"})
	if !errors.Is(err, ErrDuplicatePart) {
		t.Errorf("rename err = %v", err)
	}
	if err := doc.AddPart(other); err == nil {
		t.Error("part added twice")
	}
	if _, err := other.RemoveAttribute(AttrName); !errors.Is(err, ErrRequiredAttr) {
		t.Errorf("removing a multi-part name: %v", err)
	}
}

func TestDocumentDirty(t *testing.T) {
	_, doc := saveAndOpen(t, testDoc(t, testPart(t, "", rgbaSpec(4, 4, CompressionZIP))), LoadLazy)
	if doc.Dirty() {
		t.Fatal("opened document is dirty")
	}
	p := doc.parts[0]
	if _, err := p.RemoveAttribute("nonexistent"); err != nil {
		t.Fatal(err)
	}
	if doc.Dirty() {
		t.Error("removing a missing attribute marked the document dirty")
	}
	if err := p.SetAttribute(Attribute{Name: AttrChunkCount, Type: TypeInt, Value: int32(9)}); !errors.Is(err, ErrReadOnlyAttr) {
		t.Errorf("chunkCount edit err = %v", err)
	}
	if err := p.SetAttribute(Attribute{Name: AttrPixelAspectRatio, Type: TypeInt, Value: int32(2)}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("type change err = %v", err)
	}
	if _, err := p.RemoveAttribute(AttrLineOrder); !errors.Is(err, ErrRequiredAttr) {
		t.Errorf("required removal err = %v", err)
	}
	if doc.Dirty() {
		t.Error("rejected edits marked the document dirty")
	}
	if err := p.SetAttribute(Attribute{Name: AttrPixelAspectRatio, Type: TypeFloat, Value: float32(2)}); err != nil {
		t.Fatal(err)
	}
	if !doc.Dirty() {
		t.Error("accepted edit left the document clean")
	}
}

func TestSetAttributeFixedTypes(t *testing.T) {
	_, doc := saveAndOpen(t, testDoc(t, testPart(t, "", rgbaSpec(4, 4, CompressionZIP))), LoadLazy)
	p := doc.parts[0]
	if _, ok := p.Attribute(AttrName); ok {
		t.Fatal("single-part file carries a name")
	}
	for _, a := range []Attribute{
		{Name: AttrName, Type: TypeInt, Value: int32(1)},
		{Name: AttrView, Type: TypeFloat, Value: float32(1)},
		{Name: AttrPreview, Type: TypeString, Value: "thumb"},
		{Name: AttrLineOrder, Type: TypeInt, Value: int32(0)},
	} {
		if err := p.SetAttribute(a); !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("%s as %s: err = %v", a.Name, a.Type, err)
		}
	}
	if doc.Dirty() {
		t.Error("rejected edits marked the document dirty")
	}
	if err := p.SetAttribute(Attribute{Name: AttrName, Type: TypeString, Value: "beauty"}); err != nil {
		t.Fatal(err)
	}
	if p.Name() != "beauty" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestDocumentClose(t *testing.T) {
	_, doc := saveAndOpen(t, testDoc(t, testPart(t, "", rgbaSpec(4, 4, CompressionNone))), LoadEager)
	p := doc.parts[0]
	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 0 || p.Loaded() {
		t.Error("close kept pixel data")
	}
	if _, err := p.Buffer("R"); err == nil {
		t.Error("closed part still serves pixels")
	}
}
