package xmlnode

import (
	"errors"
	"testing"
)

func TestParseKeepsTextCDataAndOrder(t *testing.T) {
	n, err := Parse(`<msgs>
  <msg><project>Einstein</project><body><![CDATA[ task done ]]></body><seqno>4</seqno></msg>
  <msg/>
</msgs>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.Name != "msgs" || len(n.Children) != 2 {
		t.Fatalf("unexpected root: %+v", n)
	}
	if n.Text != "" {
		t.Fatalf("indentation leaked into text: %q", n.Text)
	}
	msg := n.Children[0]
	names := []string{"project", "body", "seqno"}
	for i, c := range msg.Children {
		if c.Name != names[i] {
			t.Fatalf("child %d got=%q want=%q", i, c.Name, names[i])
		}
	}
	body, ok := msg.Child("body")
	if !ok || body.CData != " task done " || body.AnyText() != " task done " {
		t.Fatalf("unexpected body: %+v", body)
	}
	if _, ok := msg.Child("missing"); ok {
		t.Fatalf("unexpected child")
	}
}

func TestMarshalSelfClosesEmptyElements(t *testing.T) {
	s, err := New("auth2", NewText("nonce_hash", "abc"), New("auth1")).Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "<auth2><nonce_hash>abc</nonce_hash><auth1/></auth2>"
	if s != want {
		t.Fatalf("got=%q want=%q", s, want)
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	in := New("root",
		NewText("a", "x < y & z"),
		Node{Name: "b", CData: "cdata body"},
		New("c", NewText("d", "1"), New("e")),
	)
	s, err := in.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Parse(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !in.Equal(out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestParseRejectsEmptyAndMalformed(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrNoRoot) {
		t.Fatalf("expected ErrNoRoot, got %v", err)
	}
	if _, err := Parse("<a><b></a>"); err == nil {
		t.Fatalf("expected parse error")
	}
}
