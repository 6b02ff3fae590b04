package twiml

import "time"

// Node is a parsed TwiML verb or noun
type Node interface {
	isNode()
}

// Response is the root element of a voice webhook reply
type Response struct {
	Children []Node
}

func (Response) isNode() {}

// Say speaks text to the caller
type Say struct {
	Text     string
	Voice    string
	Language string
	Loop     int
}

func (Say) isNode() {}

// Pause waits before the next verb
type Pause struct {
	Length time.Duration
}

func (Pause) isNode() {}

// Dial connects the caller to another party
type Dial struct {
	CallerID string
	Action   string
	Method   string
	Timeout  time.Duration
	Number   string // plain text body, or the first <Number>
	Client   string
	Children []Node
}

func (Dial) isNode() {}

// Redirect hands control to another webhook
type Redirect struct {
	URL    string
	Method string
}

func (Redirect) isNode() {}

// Hangup ends the call
type Hangup struct{}

func (Hangup) isNode() {}

// Number is a phone number dialed inside <Dial>
type Number struct {
	Number               string
	StatusCallback       string
	StatusCallbackEvent  []string
	StatusCallbackMethod string
}

func (Number) isNode() {}

// Client is a softphone identity dialed inside <Dial>
type Client struct {
	Name                string
	StatusCallback      string
	StatusCallbackEvent []string
}

func (Client) isNode() {}

// FirstDial returns the first <Dial> in the response, if any
func (r *Response) FirstDial() (*Dial, bool) {
	for _, n := range r.Children {
		if d, ok := n.(*Dial); ok {
			return d, true
		}
	}
	return nil, false
}
