package application

import "github.com/cristianortiz/gridshare/internal/offer/domain"

// OfferDTO is the output DTO exposing an offer to the HTTP and WS layers
type OfferDTO struct {
	OfferID       string       `json:"offerID"`
	SellerAccount string       `json:"sellerAccount"`
	BuyerAccount  string       `json:"buyerAccount,omitempty"`
	Amount        float64      `json:"amount"`
	OfferedAmount float64      `json:"offeredAmount"`
	Price         float64      `json:"price"`
	Location      string       `json:"location"`
	City          string       `json:"city"`
	SubmitTime    int64        `json:"submitTime"`
	AcceptTime    int64        `json:"acceptTime,omitempty"`
	UpdateTime    int64        `json:"updateTime"`
	Status        string       `json:"status"`
	Distance      *DistanceDTO `json:"distance,omitempty"` // listing search only
}

// DistanceDTO mirrors domain.Distance for responses
type DistanceDTO struct {
	Status          string `json:"status"`
	Text            string `json:"text,omitempty"`
	Meters          int64  `json:"value"`
	DurationText    string `json:"durationText,omitempty"`
	DurationSeconds int64  `json:"durationValue"`
}

func NewOfferDTO(o *domain.Offer) *OfferDTO {
	return &OfferDTO{
		OfferID:       o.OfferID,
		SellerAccount: o.SellerAccount,
		BuyerAccount:  o.BuyerAccount,
		Amount:        o.Amount,
		OfferedAmount: o.OfferedAmount,
		Price:         o.Price,
		Location:      o.Location,
		City:          o.City,
		SubmitTime:    o.SubmitTime,
		AcceptTime:    o.AcceptTime,
		UpdateTime:    o.UpdateTime,
		Status:        string(o.Status),
	}
}

func newDistanceDTO(d domain.Distance) *DistanceDTO {
	return &DistanceDTO{
		Status:          d.Status,
		Text:            d.Text,
		Meters:          d.Meters,
		DurationText:    d.DurationText,
		DurationSeconds: d.DurationSeconds,
	}
}

func newOfferDTOs(offers []*domain.Offer) []*OfferDTO {
	out := make([]*OfferDTO, 0, len(offers))
	for _, o := range offers {
		out = append(out, NewOfferDTO(o))
	}
	return out
}
