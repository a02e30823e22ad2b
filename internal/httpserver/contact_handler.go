package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"siteops/internal/relay"
	"siteops/pkg/logger"
	"siteops/pkg/util"
)

const dedupScope = "contact"

type ContactHandler struct {
	sender  relay.Sender
	deduper *util.Deduper
	logger  *zap.Logger
}

// NewContactHandler wires the relay; deduper may be nil
func NewContactHandler(sender relay.Sender, deduper *util.Deduper, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		sender:  sender,
		deduper: deduper,
		logger:  logger,
	}
}

// Submit handles POST /api/contact. The body is the relay.Result in
// every case so the front end reads one shape.
func (h *ContactHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	var sub relay.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		log.Info("Rejected malformed contact request", zap.Error(err))
		c.JSON(http.StatusBadRequest, relay.Result{
			Success: false,
			Message: "Invalid request.",
		})
		return
	}

	if err := sub.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, relay.Failed(err))
		return
	}

	var fingerprint string
	if h.deduper != nil {
		fingerprint = util.Fingerprint(
			sub[relay.FieldEmail], sub[relay.FieldSubject], sub[relay.FieldMessage],
		)
		if !h.deduper.AcquireOnce(ctx, dedupScope, fingerprint) {
			c.JSON(http.StatusConflict, relay.Result{
				Success: false,
				Message: relay.MsgDuplicate,
			})
			return
		}
	}

	res := h.sender.Submit(ctx, sub)
	if !res.Success {
		if h.deduper != nil {
			h.deduper.Release(ctx, dedupScope, fingerprint)
		}
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
