package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/technosupport/trackerd/internal/obs"
	"github.com/technosupport/trackerd/internal/vision"
)

// cacheTTL bounds how long a camera-registry response is reused before
// the next fleet-monitor tick round-trips to the registry again
// (spec.md §4.9 step 1; SPEC_FULL.md §11 cache entry).
const cacheTTL = 5 * time.Second

type groupsResponse struct {
	Results []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"results"`
}

type camerasResponse struct {
	Results []struct {
		ID                  int64  `json:"id"`
		Name                string `json:"name"`
		ExternalDetectorTok string `json:"external_detector_token"`
		Comment             string `json:"comment"`
		Active              bool   `json:"active"`
	} `json:"results"`
}

// RegistryClient is the camera registry contract (spec.md §6.3): a
// two-step prefix filter over groups, then cameras within those
// groups, retaining only RTSP-tagged entries. An optional Redis client
// short-circuits repeat round-trips on a short TTL, nil-safe so the
// client degrades to direct HTTP with no cache configured (teacher
// key-namespacing style from internal/live/service.go's
// "det:latest:...").
type RegistryClient struct {
	baseURL     string
	groupPrefix string
	http        *http.Client
	redisClient *redis.Client
}

// NewRegistryClient constructs a RegistryClient. redisClient may be
// nil, in which case every call round-trips to baseURL directly.
func NewRegistryClient(baseURL, groupPrefix string, redisClient *redis.Client) *RegistryClient {
	return &RegistryClient{
		baseURL:     baseURL,
		groupPrefix: groupPrefix,
		http:        &http.Client{Timeout: 5 * time.Second},
		redisClient: redisClient,
	}
}

// Cameras returns the active, RTSP-tagged cameras in groups whose name
// starts case-insensitively with the configured prefix (spec.md §6.3).
func (c *RegistryClient) Cameras(ctx context.Context) ([]vision.Camera, error) {
	if cached, ok := c.readCache(ctx); ok {
		return cached, nil
	}

	groupIDs, err := c.matchingGroupIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return nil, nil
	}

	cameras, err := c.fetchCameras(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	c.writeCache(ctx, cameras)
	return cameras, nil
}

func (c *RegistryClient) matchingGroupIDs(ctx context.Context) ([]int64, error) {
	var groups groupsResponse
	if err := c.getJSON(ctx, c.baseURL+"/camera_groups", &groups); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(groups.Results))
	for _, g := range groups.Results {
		if strings.HasPrefix(strings.ToLower(g.Name), strings.ToLower(c.groupPrefix)) {
			ids = append(ids, g.ID)
		}
	}
	return ids, nil
}

func (c *RegistryClient) fetchCameras(ctx context.Context, groupIDs []int64) ([]vision.Camera, error) {
	ids := make([]string, len(groupIDs))
	for i, id := range groupIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	url := fmt.Sprintf("%s/cameras?camera_groups=%s&external_detector=true&ordering=id",
		c.baseURL, strings.Join(ids, ","))

	var resp camerasResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}

	out := make([]vision.Camera, 0, len(resp.Results))
	for _, r := range resp.Results {
		if !r.Active || !strings.HasPrefix(r.Comment, "rtsp://") {
			continue
		}
		camID, err := vision.NewCameraID(r.ID)
		if err != nil {
			obs.Warn(obs.TagFleet, "skipping camera with invalid id %d: %v", r.ID, err)
			continue
		}
		out = append(out, vision.Camera{ID: camID, Name: r.Name, Token: r.ExternalDetectorTok, StreamURL: r.Comment})
	}
	return out, nil
}

func (c *RegistryClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

const registryCacheKey = "trackerd:registry:cameras"

func (c *RegistryClient) readCache(ctx context.Context) ([]vision.Camera, bool) {
	if c.redisClient == nil {
		return nil, false
	}
	raw, err := c.redisClient.Get(ctx, registryCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var cameras []vision.Camera
	if err := json.Unmarshal(raw, &cameras); err != nil {
		return nil, false
	}
	return cameras, true
}

func (c *RegistryClient) writeCache(ctx context.Context, cameras []vision.Camera) {
	if c.redisClient == nil {
		return
	}
	raw, err := json.Marshal(cameras)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, registryCacheKey, raw, cacheTTL).Err(); err != nil {
		obs.Warn(obs.TagFleet, "registry cache write failed: %v", err)
	}
}
