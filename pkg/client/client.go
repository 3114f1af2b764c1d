package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// ErrSessionExpired el refresh token ya no es válido; hay que volver a hacer login.
var ErrSessionExpired = errors.New("sesión expirada")

// APIError respuesta de error de la API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// TransferOutcome resultado de un traslado aceptado por la API.
type TransferOutcome struct {
	Accepted         bool
	AlreadyProcessed bool
	Message          string
}

// Client cliente HTTP de la API. Guarda el access token en memoria y el refresh
// token en el cookie jar; ante un 401 renueva una sola vez por proceso aunque
// haya varias peticiones concurrentes esperando.
type Client struct {
	http *resty.Client
	log  zerolog.Logger

	mu    sync.RWMutex
	token string

	refreshGroup   singleflight.Group
	refreshTimeout time.Duration
}

// Option configura el Client.
type Option func(*Client)

// WithTimeout fija el timeout de cada petición.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithRefreshTimeout fija el tiempo máximo de la renovación compartida.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) { c.refreshTimeout = d }
}

// New crea el cliente contra baseURL (ej: http://localhost:4000).
func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		http:           resty.New().SetBaseURL(baseURL).SetTimeout(15 * time.Second),
		log:            log,
		refreshTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken devuelve el access token actual ("" sin sesión).
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login autentica y guarda el access token; el refresh token queda en la cookie.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out dto.TokenResponse
	var apiErr dto.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(dto.LoginRequest{Email: email, Password: password}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/v1/auth/login")
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.IsError() {
		return toAPIError(resp.StatusCode(), apiErr)
	}
	c.setToken(out.AccessToken)
	return nil
}

// Logout invalida el refresh token en el servidor y olvida el access token.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Post("/api/v1/auth/logout")
	c.setToken("")
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Message: resp.String()}
	}
	return nil
}

// Transfer envía un traslado. La misma idempotencyKey puede reenviarse sin riesgo.
func (c *Client) Transfer(ctx context.Context, in dto.TransferRequest, idempotencyKey string) (*TransferOutcome, error) {
	var out dto.MessageResponse
	var apiErr dto.ErrorResponse
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/stock/transfer", func(r *resty.Request) {
		r.SetHeader("Idempotency-Key", idempotencyKey).
			SetBody(in).
			SetResult(&out).
			SetError(&apiErr)
	})
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case http.StatusCreated:
		return &TransferOutcome{Accepted: true, Message: out.Message}, nil
	case http.StatusOK:
		return &TransferOutcome{AlreadyProcessed: true, Message: out.Message}, nil
	}
	return nil, toAPIError(resp.StatusCode(), apiErr)
}

// Stock lista el stock; productID/locationID en 0 no filtran.
func (c *Client) Stock(ctx context.Context, productID, locationID int64) ([]entity.StockRow, error) {
	var out []entity.StockRow
	var apiErr dto.ErrorResponse
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/stock", func(r *resty.Request) {
		if productID > 0 {
			r.SetQueryParam("product_id", strconv.FormatInt(productID, 10))
		}
		if locationID > 0 {
			r.SetQueryParam("location_id", strconv.FormatInt(locationID, 10))
		}
		r.SetResult(&out).SetError(&apiErr)
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, toAPIError(resp.StatusCode(), apiErr)
	}
	return out, nil
}

// do envía la petición con el access token actual. Ante un 401 renueva (compartido)
// y reintenta exactamente una vez.
func (c *Client) do(ctx context.Context, method, path string, build func(*resty.Request)) (*resty.Response, error) {
	send := func(token string) (*resty.Response, error) {
		req := c.http.R().SetContext(ctx)
		if token != "" {
			req.SetAuthToken(token)
		}
		build(req)
		return req.Execute(method, path)
	}

	token := c.AccessToken()
	resp, err := send(token)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode() != http.StatusUnauthorized {
		return resp, nil
	}

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	resp, err = send(fresh)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// refresh obtiene un access token nuevo. Las llamadas concurrentes comparten una sola
// petición a /auth/refresh; si el token ya cambió desde que se usó stale, no se vuelve a pedir.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	ch := c.refreshGroup.DoChan("refresh", func() (interface{}, error) {
		if current := c.AccessToken(); current != "" && current != stale {
			return current, nil
		}
		// La renovación no depende del contexto del primer caller: los demás esperan el resultado.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()

		var out dto.TokenResponse
		resp, err := c.http.R().SetContext(rctx).SetResult(&out).Post("/api/v1/auth/refresh")
		if err != nil {
			return "", fmt.Errorf("refresh: %w", err)
		}
		if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
			c.setToken("")
			return "", ErrSessionExpired
		}
		if resp.IsError() || out.AccessToken == "" {
			return "", &APIError{Status: resp.StatusCode(), Message: "refresh sin access token"}
		}
		c.setToken(out.AccessToken)
		c.log.Debug().Msg("access token renovado")
		return out.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func toAPIError(status int, body dto.ErrorResponse) *APIError {
	return &APIError{Status: status, Code: body.Code, Message: body.Message}
}
