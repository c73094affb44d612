package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jerryawoyele/markezon-backend/internal/logger"
)

// HTTPGateway выполняет возвраты через REST API платёжного провайдера.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway создаёт шлюз с заданным таймаутом запросов.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type refundRequest struct {
	BookingID uuid.UUID `json:"booking_id"`
	Amount    float64   `json:"amount"`
}

// Refund инициирует возврат средств. Провайдер обязан быть идемпотентным
// по booking_id: повтор того же возврата не создаёт второй перевод.
func (g *HTTPGateway) Refund(ctx context.Context, bookingID uuid.UUID, amount float64) error {
	raw, err := json.Marshal(refundRequest{BookingID: bookingID, Amount: amount})
	if err != nil {
		return fmt.Errorf("payment gateway: marshal %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/refunds", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("payment gateway: request %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", bookingID.String())

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment gateway: refund %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("payment gateway: refund status %d: %s", resp.StatusCode, string(body))
}

// LogGateway — заглушка для development-окружения: возврат считается
// успешным и только логируется.
type LogGateway struct{}

// NewLogGateway создаёт заглушку шлюза.
func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

// Refund логирует возврат и завершается успешно.
func (g *LogGateway) Refund(_ context.Context, bookingID uuid.UUID, amount float64) error {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"amount":     amount,
		}).Info("payment gateway: возврат выполнен (dev-заглушка)")
	}
	return nil
}
