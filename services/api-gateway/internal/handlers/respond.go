package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/api-gateway/internal/clients"
	"github.com/pitchplease/facility-booking/services/api-gateway/internal/saga"
)

// Doer is the raw downstream call used by pass-through routes.
type Doer interface {
	Do(ctx context.Context, op, method, path string, query url.Values, body any, hdr http.Header) (*clients.Reply, error)
}

// forward relays the inbound request to path on d and writes the reply back.
func forward(c *gin.Context, log logrus.FieldLogger, d Doer, op, path string, query url.Values) {
	var body any
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		bs, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		if len(bs) > 0 {
			body = bs
		}
	}
	var hdr http.Header
	if a := c.GetHeader("Authorization"); a != "" {
		hdr = http.Header{"Authorization": {a}}
	}
	rep, err := d.Do(c.Request.Context(), op, c.Request.Method, path, query, body, hdr)
	if err != nil {
		writeError(c, log, err)
		return
	}
	writeReply(c, rep)
}

func writeReply(c *gin.Context, rep *clients.Reply) {
	ct := rep.ContentType
	if ct == "" {
		ct = "application/json; charset=utf-8"
	}
	c.Data(rep.Status, ct, rep.Body)
}

// writeError prefers the downstream's own status and body when one came back.
func writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	var pf *saga.PartialFailureError
	if errors.As(err, &pf) {
		c.Header("X-Booking-Group-Id", strconv.FormatInt(pf.BookingGroupID, 10))
	}

	var de *clients.DownstreamError
	switch {
	case errors.Is(err, saga.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &de) && de.Status > 0:
		writeReply(c, &clients.Reply{Status: de.Status, ContentType: de.ContentType, Body: de.Body})
	case errors.As(err, &de):
		log.WithError(err).WithField("path", c.FullPath()).Error("downstream unreachable")
		c.JSON(de.HTTPStatus(), gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("gateway error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func int64Query(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return v, true
}

func pick(c *gin.Context, keys ...string) url.Values {
	q := url.Values{}
	for _, k := range keys {
		if v, ok := c.GetQuery(k); ok {
			q.Set(k, v)
		}
	}
	return q
}
