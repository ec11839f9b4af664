package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/orderhook/internal/order/domain"
	"github.com/smallbiznis/orderhook/internal/shopify"
	"go.uber.org/zap"
)

// HandleWebhook receives a Shopify order webhook. The signature is verified
// over the raw body bytes before anything parses them; only a verified
// payload reaches the ingestion pipeline.
func (s *Server) HandleWebhook(c *gin.Context) {
	if s.metrics != nil {
		s.metrics.WebhooksReceived.Inc()
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	topic := strings.TrimSpace(c.GetHeader(shopify.TopicHeader))
	shopDomain := strings.TrimSpace(c.GetHeader(shopify.ShopDomainHeader))
	c.Set("webhook_topic", topic)
	c.Set("webhook_shop_domain", shopDomain)

	if err := s.verifier.VerifyRequest(c.Request.Header, payload); err != nil {
		if s.metrics != nil {
			s.metrics.SignatureRejected.Inc()
		}
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.Ingest(c.Request.Context(), orderdomain.IngestRequest{
		Payload:    payload,
		Topic:      topic,
		ShopDomain: shopDomain,
	})
	if err != nil {
		s.countIngestFailure(err)
		AbortWithError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.OrdersStored.Inc()
	}
	s.log.Info("order ingested",
		zap.String("order_id", order.ID),
		zap.String("topic", topic),
		zap.String("shop_domain", shopDomain),
	)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) countIngestFailure(err error) {
	if s.metrics == nil {
		return
	}
	if errorType, _ := classifyErrorForLog(err); errorType == "validation_error" {
		s.metrics.PayloadRejected.Inc()
		return
	}
	s.metrics.StorageFailures.Inc()
}
