package omisecli

import (
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// Gateway is the slice of the Omise API the payment service uses.
type Gateway interface {
	CreateSource(typ string, amount int64, currency string) (*omise.Source, error)
	CreateCharge(amount int64, currency, sourceID string, metadata map[string]interface{}) (*omise.Charge, error)
	RetrieveEvent(id string) (*omise.Event, error)
}

type sdkGateway struct{ c *omise.Client }

func NewOmiseClient(pub, sec string) (Gateway, error) {
	c, err := omise.NewClient(pub, sec)
	if err != nil {
		return nil, err
	}
	// omise-go v1.0.6 has no SetDebug; NewClient already defaults debug to false.
	return &sdkGateway{c: c}, nil
}

func (g *sdkGateway) CreateSource(typ string, amount int64, currency string) (*omise.Source, error) {
	src := &omise.Source{}
	if err := g.c.Do(src, &operations.CreateSource{Type: typ, Amount: amount, Currency: currency}); err != nil {
		return nil, err
	}
	return src, nil
}

func (g *sdkGateway) CreateCharge(amount int64, currency, sourceID string, metadata map[string]interface{}) (*omise.Charge, error) {
	ch := &omise.Charge{}
	req := &operations.CreateCharge{
		Amount:   amount,
		Currency: currency,
		Source:   sourceID,
		Metadata: metadata,
	}
	if err := g.c.Do(ch, req); err != nil {
		return nil, err
	}
	return ch, nil
}

func (g *sdkGateway) RetrieveEvent(id string) (*omise.Event, error) {
	ev := &omise.Event{}
	if err := g.c.Do(ev, &operations.RetrieveEvent{EventID: id}); err != nil {
		return nil, err
	}
	return ev, nil
}
