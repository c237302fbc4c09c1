package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Image generation modes accepted by the API.
const (
	ModeTxt2Img  = "txt2img"
	ModeImg2Img  = "img2img"
	ModeInpaint  = "inpaint"
	ModeRemoveBG = "remove_bg"
	ModeUpscale  = "upscale"
)

// Typed image provider failures the orchestrator maps to client codes.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrGenerationTimeout   = errors.New("generation timed out")
)

// ValidMode reports whether the mode selector is one the service supports.
func ValidMode(mode string) bool {
	switch mode {
	case ModeTxt2Img, ModeImg2Img, ModeInpaint, ModeRemoveBG, ModeUpscale:
		return true
	default:
		return false
	}
}

// NeedsImage reports whether the mode requires a source image payload.
func NeedsImage(mode string) bool {
	return ValidMode(mode) && mode != ModeTxt2Img
}

// ImageRequest is one image-generation exchange.
type ImageRequest struct {
	Mode   string
	Prompt string
	Image  []byte
}

// ImageResult carries the generated image as raw base64 (no data: prefix).
type ImageResult struct {
	Base64 string
}

// ImageGenerator produces an image for a prompt and optional source image.
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (ImageResult, error)
	Name() string
}

// StabilityConfig configures the Stability AI client.
type StabilityConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// StabilityClient calls the Stability v2beta stable-image endpoints.
type StabilityClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewStabilityClient(cfg StabilityConfig) *StabilityClient {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = "https://api.stability.ai"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &StabilityClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *StabilityClient) Name() string { return "stability" }

func (c *StabilityClient) endpoint(mode string) string {
	switch mode {
	case ModeImg2Img, ModeInpaint:
		return c.baseURL + "/v2beta/stable-image/edit"
	case ModeRemoveBG:
		return c.baseURL + "/v2beta/stable-image/remove-background"
	case ModeUpscale:
		return c.baseURL + "/v2beta/stable-image/upscale"
	default:
		return c.baseURL + "/v2beta/stable-image/generate/core"
	}
}

func (c *StabilityClient) Generate(ctx context.Context, req ImageRequest) (ImageResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if req.Prompt != "" {
		if err := mw.WriteField("prompt", req.Prompt); err != nil {
			return ImageResult{}, fmt.Errorf("write prompt field: %w", err)
		}
	}
	if len(req.Image) > 0 {
		fw, err := mw.CreateFormFile("image", "image.png")
		if err != nil {
			return ImageResult{}, fmt.Errorf("create image part: %w", err)
		}
		if _, err := fw.Write(req.Image); err != nil {
			return ImageResult{}, fmt.Errorf("write image part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return ImageResult{}, fmt.Errorf("close multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.Mode), &body)
	if err != nil {
		return ImageResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return ImageResult{}, ErrGenerationTimeout
		}
		return ImageResult{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusPaymentRequired {
		return ImageResult{}, ErrInsufficientBalance
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return ImageResult{}, fmt.Errorf("stability http status %d: %s", res.StatusCode, string(detail))
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return ImageResult{}, fmt.Errorf("read response: %w", err)
	}

	b64, err := extractImageBase64(raw)
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{Base64: b64}, nil
}

// extractImageBase64 handles both response shapes the stable-image endpoints
// return: a top-level "image" field and the older "images" array.
func extractImageBase64(raw []byte) (string, error) {
	var obj struct {
		Image  string `json:"image"`
		Images []struct {
			Base64 string `json:"base64"`
		} `json:"images"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if obj.Image != "" {
		return obj.Image, nil
	}
	if len(obj.Images) > 0 && obj.Images[0].Base64 != "" {
		return obj.Images[0].Base64, nil
	}
	return "", fmt.Errorf("no image in response")
}

func isClientTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
