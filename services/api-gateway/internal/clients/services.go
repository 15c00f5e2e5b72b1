package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

var ErrUnauthorized = errors.New("unauthorized")

type Booking struct{ *Client }

func NewBooking(c *Client) *Booking { return &Booking{c} }

func (b *Booking) CreateGroup(ctx context.Context, body any) (*Reply, error) {
	return b.Do(ctx, "create_group", http.MethodPost, "/create", nil, body, nil)
}

func (b *Booking) CancelGroup(ctx context.Context, groupID int64) (*Reply, error) {
	q := url.Values{"bookingGroupId": {strconv.FormatInt(groupID, 10)}}
	return b.Do(ctx, "cancel_group", http.MethodDelete, "/cancel-group", q, nil, nil)
}

type Payment struct{ *Client }

func NewPayment(c *Client) *Payment { return &Payment{c} }

func (p *Payment) Create(ctx context.Context, body any) (*Reply, error) {
	return p.Do(ctx, "create", http.MethodPost, "/create", nil, body, nil)
}

func (p *Payment) UpdateStatusByBookingGroup(ctx context.Context, groupID int64, status string) (*Reply, error) {
	q := url.Values{"bookingId": {strconv.FormatInt(groupID, 10)}, "status": {status}}
	return p.Do(ctx, "update_status_by_booking", http.MethodPut, "/update_status_by_bookingID", q, nil, nil)
}

func (p *Payment) UpdateStatusByFacility(ctx context.Context, facilityID int64, status string) (*Reply, error) {
	q := url.Values{"facilityId": {strconv.FormatInt(facilityID, 10)}, "status": {status}}
	return p.Do(ctx, "update_status_by_facility", http.MethodPut, "/update_status_by_facilityId", q, nil, nil)
}

type Facility struct{ *Client }

func NewFacility(c *Client) *Facility { return &Facility{c} }

func (f *Facility) Delete(ctx context.Context, facilityID int64) (*Reply, error) {
	q := url.Values{"facilityId": {strconv.FormatInt(facilityID, 10)}}
	return f.Do(ctx, "delete", http.MethodDelete, "/delete", q, nil, nil)
}

// Principal is the caller identity reported by the auth service.
type Principal struct {
	Sub   string `json:"sub"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

type Auth struct{ *Client }

func NewAuth(c *Client) *Auth { return &Auth{c} }

// ValidateToken asks the auth service whether token is live. A 401 or 403
// answer is reported as ErrUnauthorized; anything else that is not a valid
// principal is a plain error.
func (a *Auth) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	hdr := http.Header{"Authorization": {"Bearer " + token}}
	rep, err := a.Do(ctx, "validate_token", http.MethodPost, "/validate-token", nil, nil, hdr)
	if err != nil {
		var de *DownstreamError
		if errors.As(err, &de) && (de.Status == http.StatusUnauthorized || de.Status == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, de.Body)
		}
		return nil, err
	}
	var out struct {
		Valid bool `json:"valid"`
		Principal
	}
	if err := json.Unmarshal(rep.Body, &out); err != nil {
		return nil, fmt.Errorf("auth validate_token: decode response: %w", err)
	}
	if !out.Valid || out.Sub == "" {
		return nil, errors.New("auth validate_token: malformed response")
	}
	return &out.Principal, nil
}
