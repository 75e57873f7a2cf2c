package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/pkg/clock"

	"github.com/google/uuid"
)

// ProofBucket holds the photos taken at handover.
const ProofBucket = "pickup-proofs"

const signedURLExpirySeconds = 3600

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StorageClient signs direct-to-storage uploads.
type StorageClient interface {
	CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error)
}

// HTTPClient is a StorageClient backed by the Supabase storage HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

type signedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign
}

func (c *HTTPClient) CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error) {
	if c.BaseURL == "" {
		return "", fmt.Errorf("storage: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return "", fmt.Errorf("storage: SUPABASE_SECRET_KEY is not set")
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, bucket, objectPath)

	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"expiresIn": signedURLExpirySeconds,
		"upsert":    false,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	// Storage wants the service key both as apikey and as bearer token.
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage error: status %d body: %s", resp.StatusCode, string(respBody))
	}

	var data signedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("storage response decode: %w", err)
	}
	switch {
	case data.SignedURL != "":
		return data.SignedURL, nil
	case data.SignedURLSnake != "":
		return data.SignedURLSnake, nil
	case data.URL != "":
		u := data.URL
		if u[0] != '/' {
			u = "/" + u
		}
		return base + u, nil
	}
	return "", fmt.Errorf("storage returned no signed URL, body: %s", string(respBody))
}

type Service struct {
	Client      StorageClient
	SupabaseURL string
	Clock       clock.Clock
}

// UploadResult is what the client needs to upload and later reference the file.
// Ref is the value to send as proof_of_pickup_ref.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
	Ref       string `json:"ref"`
}

// ProofPath is the object path of a proof photo: one folder per pickup request.
func ProofPath(requestID uuid.UUID, at time.Time, fileName string) string {
	name := unsafeFileChars.ReplaceAllString(path.Base(strings.ReplaceAll(fileName, `\`, "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "proof"
	}
	return fmt.Sprintf("%s/%d-%s", requestID, at.UnixMilli(), name)
}

// SignPickupProof returns a signed URL for uploading a handover photo of the request.
func (s *Service) SignPickupProof(ctx context.Context, requestID uuid.UUID, fileName string) (*UploadResult, error) {
	if requestID == uuid.Nil {
		return nil, domain.Validation("request_id is required")
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, domain.Validation("file_name is required")
	}
	now := time.Now()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	objectPath := ProofPath(requestID, now, fileName)

	signedURL, err := s.Client.CreateSignedUploadURL(ctx, ProofBucket, objectPath)
	if err != nil {
		return nil, err
	}
	publicBase := strings.TrimRight(s.SupabaseURL, "/")
	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: fmt.Sprintf("%s/storage/v1/object/public/%s/%s", publicBase, ProofBucket, objectPath),
		Path:      objectPath,
		Ref:       ProofBucket + "/" + objectPath,
	}, nil
}
