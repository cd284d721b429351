package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
)

// eventNameAliases covers the field names platforms have used for the
// event type across payload versions
var eventNameAliases = []string{"event", "event_type", "type"}

// storeIDAliases covers the field names for the external store id; Salla
// sends "merchant", Zid sends "store_id", older payloads vary
var storeIDAliases = []string{"merchant", "merchant_id", "store_id", "shop_id"}

// inboundPayload is the platform-agnostic envelope of one delivery,
// extracted before any platform-specific decoding
type inboundPayload struct {
	EventName string
	StoreID   string
	Data      json.RawMessage
}

// parsePayload pulls the event name, store id and data object out of a raw
// webhook body. Field names are matched against known aliases because
// upstream shapes vary across event versions; a missing field yields an
// empty value, never an error, so the caller can record a skip.
func parsePayload(raw []byte) (*inboundPayload, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}

	p := &inboundPayload{}
	for _, alias := range eventNameAliases {
		if v, ok := top[alias]; ok {
			if s := scalarString(v); s != "" {
				p.EventName = s
				break
			}
		}
	}
	for _, alias := range storeIDAliases {
		if v, ok := top[alias]; ok {
			if s := scalarString(v); s != "" {
				p.StoreID = s
				break
			}
		}
	}
	// some payloads nest the store reference as an object
	if p.StoreID == "" {
		if v, ok := top["store"]; ok {
			var store map[string]json.RawMessage
			if err := json.Unmarshal(v, &store); err == nil {
				if id, ok := store["id"]; ok {
					p.StoreID = scalarString(id)
				}
			}
		}
	}

	if v, ok := top["data"]; ok {
		p.Data = v
	} else if v, ok := top["payload"]; ok {
		p.Data = v
	} else {
		// platforms occasionally post the entity itself as the body
		p.Data = raw
	}
	return p, nil
}

// scalarString renders a JSON scalar as a string: ids arrive as numbers in
// some payload versions and strings in others.
func scalarString(raw json.RawMessage) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}
