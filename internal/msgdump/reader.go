// Package msgdump streams an exported chat history as message events.
//
// The export is HTML. The reader recognises these elements by class:
//
//	div.msg_item    one message; a msg_item nested inside another is a
//	                forwarded message and is reported one level deeper
//	.from a[href]   author link; the last path segment is the short name
//	.msg_date       timestamp text, "YYYY.MM.DD HH:MM:SS"
//	.msg_body       message text; <br> is reported as "\n"
//
// Everything else is ignored. Text outside any message is never reported.
package msgdump

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind identifies an Event.
type Kind int

const (
	MessageStart Kind = iota
	ShortName
	Date
	BodyPart
	MessageEnd
)

func (k Kind) String() string {
	switch k {
	case MessageStart:
		return "start"
	case ShortName:
		return "short_name"
	case Date:
		return "date"
	case BodyPart:
		return "body"
	case MessageEnd:
		return "end"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is one item of the message stream. Depth is 0 for top-level
// messages and grows by one per level of forwarding.
type Event struct {
	Kind  Kind
	Depth int
	Text  string
}

// Handler consumes events. Returning an error stops the read.
type Handler func(Event) error

type role int

const (
	roleNone role = iota
	roleMessage
	roleFrom
	roleDate
	roleBody
)

type frame struct {
	tag  string
	role role
}

// Read tokenizes r and calls fn for every event in document order.
// Errors from fn are returned unchanged.
func Read(r io.Reader, fn Handler) error {
	p := &parser{fn: fn, depth: -1}
	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return p.closeAll()
			}
			return fmt.Errorf("tokenize message dump: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			if err := p.start(z.Token(), tt == html.SelfClosingTagToken); err != nil {
				return err
			}
		case html.EndTagToken:
			if err := p.end(z.Token()); err != nil {
				return err
			}
		case html.TextToken:
			if err := p.text(z.Token().Data); err != nil {
				return err
			}
		}
	}
}

type parser struct {
	fn    Handler
	stack []frame
	depth int
	// open holds per-message state for every message on the stack.
	open []messageState
}

type messageState struct {
	named bool
	dated bool
}

func (p *parser) emit(kind Kind, text string) error {
	return p.fn(Event{Kind: kind, Depth: p.depth, Text: text})
}

func (p *parser) start(tok html.Token, selfClosing bool) error {
	if tok.DataAtom == atom.Br {
		if p.depth >= 0 && p.innermost() == roleBody {
			return p.emit(BodyPart, "\n")
		}
		return nil
	}
	r := classify(tok)
	if p.depth >= 0 && r == roleNone && tok.DataAtom == atom.A && p.innermost() == roleFrom {
		st := p.current()
		if name := shortName(attr(tok, "href")); name != "" && !st.named {
			st.named = true
			if err := p.emit(ShortName, name); err != nil {
				return err
			}
		}
	}
	if selfClosing || isVoid(tok.DataAtom) {
		return nil
	}

	p.stack = append(p.stack, frame{tag: tok.Data, role: r})
	if r == roleMessage {
		p.depth++
		p.open = append(p.open, messageState{})
		return p.emit(MessageStart, "")
	}
	return nil
}

func (p *parser) end(tok html.Token) error {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].tag != tok.Data {
			continue
		}
		// Close everything above the match too; exports are not always well formed.
		for j := len(p.stack) - 1; j >= i; j-- {
			if p.stack[j].role == roleMessage {
				if err := p.closeMessage(); err != nil {
					return err
				}
			}
		}
		p.stack = p.stack[:i]
		return nil
	}
	return nil
}

func (p *parser) closeMessage() error {
	if err := p.emit(MessageEnd, ""); err != nil {
		return err
	}
	p.depth--
	p.open = p.open[:len(p.open)-1]
	return nil
}

func (p *parser) closeAll() error {
	for p.depth >= 0 {
		if err := p.closeMessage(); err != nil {
			return err
		}
	}
	p.stack = nil
	return nil
}

func (p *parser) text(data string) error {
	if p.depth < 0 {
		return nil
	}
	switch p.innermost() {
	case roleDate:
		st := p.current()
		ts := strings.TrimSpace(data)
		if ts == "" || st.dated {
			return nil
		}
		st.dated = true
		return p.emit(Date, ts)
	case roleBody:
		if data == "" {
			return nil
		}
		return p.emit(BodyPart, data)
	}
	return nil
}

// current returns the state of the innermost open message.
// Callers must only use it while depth >= 0.
func (p *parser) current() *messageState {
	return &p.open[len(p.open)-1]
}

// innermost returns the role of the nearest classified ancestor.
func (p *parser) innermost() role {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if r := p.stack[i].role; r != roleNone {
			return r
		}
	}
	return roleNone
}

func classify(tok html.Token) role {
	for _, class := range strings.Fields(attr(tok, "class")) {
		switch class {
		case "msg_item":
			return roleMessage
		case "from":
			return roleFrom
		case "msg_date":
			return roleDate
		case "msg_body":
			return roleBody
		}
	}
	return roleNone
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// shortName extracts the last path segment of an author link:
// "https://vk.com/sota" and "/sota/" both yield "sota".
func shortName(href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndexByte(href, '/'); i >= 0 {
		href = href[i+1:]
	}
	return href
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}
