package notifications

import "fmt"

// Destination addresses a single send: either one device token or one
// broadcast topic, never both.
type Destination struct {
	Token string `json:"token,omitempty"`
	Topic string `json:"topic,omitempty"`
}

// ToToken returns a direct per-user destination.
func ToToken(token string) Destination { return Destination{Token: token} }

// ToTopic returns a broadcast destination.
func ToTopic(topic string) Destination { return Destination{Topic: topic} }

// IsTopic reports whether d targets a broadcast channel.
func (d Destination) IsTopic() bool { return d.Topic != "" }

// Validate checks that exactly one of Token and Topic is set.
func (d Destination) Validate() error {
	switch {
	case d.Token == "" && d.Topic == "":
		return fmt.Errorf("%w: empty", ErrInvalidDestination)
	case d.Token != "" && d.Topic != "":
		return fmt.Errorf("%w: both token and topic set", ErrInvalidDestination)
	}
	return nil
}

// String renders the destination without exposing the full device token.
func (d Destination) String() string {
	if d.IsTopic() {
		return "topic:" + d.Topic
	}
	if len(d.Token) > 8 {
		return "token:" + d.Token[:8] + "..."
	}
	return "token:" + d.Token
}
