package twiml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Parse reads a voice webhook reply into a Response
func Parse(data []byte) (*Response, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml parse error: %w", err)
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Response" {
			var resp Response
			if err := parseChildren(decoder, "Response", func(n Node) { resp.Children = append(resp.Children, n) }); err != nil {
				return nil, err
			}
			return &resp, nil
		}
	}
	return nil, fmt.Errorf("no <Response> element found")
}

func parseChildren(decoder *xml.Decoder, parent string, add func(Node)) error {
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return fmt.Errorf("unterminated <%s>", parent)
		}
		if err != nil {
			return err
		}
		switch t := token.(type) {
		case xml.StartElement:
			node, err := parseNode(decoder, &t)
			if err != nil {
				return err
			}
			add(node)
		case xml.EndElement:
			if t.Name.Local == parent {
				return nil
			}
		}
	}
}

func parseNode(decoder *xml.Decoder, start *xml.StartElement) (Node, error) {
	switch start.Name.Local {
	case "Say":
		return parseSay(decoder, start)
	case "Pause":
		return parsePause(decoder, start)
	case "Dial":
		return parseDial(decoder, start)
	case "Redirect":
		return parseRedirect(decoder, start)
	case "Hangup":
		if err := decoder.Skip(); err != nil {
			return nil, err
		}
		return &Hangup{}, nil
	case "Number":
		return parseNumber(decoder, start)
	case "Client":
		return parseClient(decoder, start)
	default:
		return nil, fmt.Errorf("unknown TwiML element: <%s>", start.Name.Local)
	}
}

func unknownAttr(attr xml.Attr, elem string) error {
	return fmt.Errorf("unknown attribute '%s' on <%s>", attr.Name.Local, elem)
}

func parseSay(decoder *xml.Decoder, start *xml.StartElement) (*Say, error) {
	say := &Say{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "voice":
			say.Voice = attr.Value
		case "language":
			say.Language = attr.Value
		case "loop":
			say.Loop, _ = strconv.Atoi(attr.Value)
		default:
			return nil, unknownAttr(attr, "Say")
		}
	}
	if err := decoder.DecodeElement(&say.Text, start); err != nil {
		return nil, err
	}
	return say, nil
}

func parsePause(decoder *xml.Decoder, start *xml.StartElement) (*Pause, error) {
	pause := &Pause{Length: time.Second}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "length":
			if n, err := strconv.Atoi(attr.Value); err == nil {
				pause.Length = time.Duration(n) * time.Second
			}
		default:
			return nil, unknownAttr(attr, "Pause")
		}
	}
	if err := decoder.Skip(); err != nil {
		return nil, err
	}
	return pause, nil
}

func parseDial(decoder *xml.Decoder, start *xml.StartElement) (*Dial, error) {
	dial := &Dial{
		Method:  "POST",
		Timeout: 30 * time.Second,
	}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "callerId":
			dial.CallerID = attr.Value
		case "action":
			dial.Action = attr.Value
		case "method":
			dial.Method = strings.ToUpper(attr.Value)
		case "timeout":
			if n, err := strconv.Atoi(attr.Value); err == nil {
				dial.Timeout = time.Duration(n) * time.Second
			}
		default:
			return nil, unknownAttr(attr, "Dial")
		}
	}

	var text string
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.CharData:
			text += strings.TrimSpace(string(t))
		case xml.StartElement:
			node, err := parseNode(decoder, &t)
			if err != nil {
				return nil, err
			}
			dial.Children = append(dial.Children, node)
			switch n := node.(type) {
			case *Number:
				if dial.Number == "" {
					dial.Number = n.Number
				}
			case *Client:
				if dial.Client == "" {
					dial.Client = n.Name
				}
			}
		case xml.EndElement:
			if t.Name.Local == "Dial" {
				if len(dial.Children) == 0 {
					dial.Number = text
				}
				return dial, nil
			}
		}
	}
}

func parseRedirect(decoder *xml.Decoder, start *xml.StartElement) (*Redirect, error) {
	redirect := &Redirect{Method: "POST"}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "method":
			redirect.Method = strings.ToUpper(attr.Value)
		default:
			return nil, unknownAttr(attr, "Redirect")
		}
	}
	if err := decoder.DecodeElement(&redirect.URL, start); err != nil {
		return nil, err
	}
	redirect.URL = strings.TrimSpace(redirect.URL)
	return redirect, nil
}

func parseNumber(decoder *xml.Decoder, start *xml.StartElement) (*Number, error) {
	num := &Number{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "statusCallback":
			num.StatusCallback = attr.Value
		case "statusCallbackEvent":
			num.StatusCallbackEvent = strings.Fields(attr.Value)
		case "statusCallbackMethod":
			num.StatusCallbackMethod = strings.ToUpper(attr.Value)
		default:
			return nil, unknownAttr(attr, "Number")
		}
	}
	if err := decoder.DecodeElement(&num.Number, start); err != nil {
		return nil, err
	}
	num.Number = strings.TrimSpace(num.Number)
	return num, nil
}

func parseClient(decoder *xml.Decoder, start *xml.StartElement) (*Client, error) {
	client := &Client{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "statusCallback":
			client.StatusCallback = attr.Value
		case "statusCallbackEvent":
			client.StatusCallbackEvent = strings.Fields(attr.Value)
		default:
			return nil, unknownAttr(attr, "Client")
		}
	}
	// <Client> may wrap an <Identity> element instead of plain text
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.CharData:
			client.Name += strings.TrimSpace(string(t))
		case xml.StartElement:
			if t.Name.Local != "Identity" {
				return nil, fmt.Errorf("unknown TwiML element in <Client>: <%s>", t.Name.Local)
			}
		case xml.EndElement:
			if t.Name.Local == "Client" {
				return client, nil
			}
		}
	}
}
