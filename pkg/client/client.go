// Package client provides access to the segment annotation service API:
// datasets, samples, labels, labelsets, releases and asset uploads.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agleyzer/segments/internal/rest"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.segments.ai/"

// Client talks to the annotation service API.
type Client struct {
	api    *rest.Client
	upload *http.Client
	logger *slog.Logger
}

type options struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL overrides the API endpoint, e.g. for a staging environment.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a client authenticated with the given API key.
// No request is issued until an operation is called; use Status to
// verify connectivity and credentials.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	o := options{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	api, err := rest.New(o.baseURL, apiKey, o.httpClient, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	uploadClient := o.httpClient
	if uploadClient == nil {
		uploadClient = &http.Client{Timeout: 5 * time.Minute}
	}

	return &Client{
		api:    api,
		upload: uploadClient,
		logger: o.logger,
	}, nil
}

// Status verifies that the API is reachable and the key is accepted.
func (c *Client) Status(ctx context.Context) error {
	return c.api.Get(ctx, "/api_status/", nil)
}

// Datasets returns the datasets of the given user, or of the
// authenticated user when user is empty.
func (c *Client) Datasets(ctx context.Context, user string) ([]Dataset, error) {
	path := "/user/datasets/"
	if user != "" {
		path = fmt.Sprintf("/users/%s/datasets/", user)
	}

	var out []Dataset
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return out, nil
}

// Dataset returns a dataset by identifier ("owner/name").
func (c *Client) Dataset(ctx context.Context, identifier string) (*Dataset, error) {
	var out Dataset
	if err := c.api.Get(ctx, fmt.Sprintf("/datasets/%s/", identifier), &out); err != nil {
		return nil, fmt.Errorf("failed to get dataset %s: %w", identifier, err)
	}
	return &out, nil
}

// AddDatasetParams describes a dataset to create. Zero values fall back
// to the API defaults: segmentation-bitmap task type, "other" category,
// a single "object" labeling category, skip-labeling enabled.
type AddDatasetParams struct {
	Name               string
	Description        string
	TaskType           TaskType
	TaskAttributes     *TaskAttributes
	Category           Category
	Public             bool
	Readme             string
	EnableSkipLabeling *bool
	EnableSkipReview   *bool
	EnableRatings      bool
}

// AddDataset creates a dataset owned by the authenticated user.
func (c *Client) AddDataset(ctx context.Context, params AddDatasetParams) (*Dataset, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("dataset name is required")
	}
	if params.TaskType == "" {
		params.TaskType = TaskTypeSegmentationBitmap
	}
	if params.Category == "" {
		params.Category = CategoryOther
	}
	if params.TaskAttributes == nil {
		params.TaskAttributes = &TaskAttributes{
			FormatVersion: "0.1",
			Categories:    []TaskAttributeCategory{{ID: 0, Name: "object"}},
		}
	}

	payload := map[string]any{
		"name":                  params.Name,
		"description":           params.Description,
		"task_type":             params.TaskType,
		"task_attributes":       params.TaskAttributes,
		"category":              params.Category,
		"public":                params.Public,
		"readme":                params.Readme,
		"enable_skip_labeling":  boolOrDefault(params.EnableSkipLabeling, true),
		"enable_skip_reviewing": boolOrDefault(params.EnableSkipReview, false),
		"enable_ratings":        params.EnableRatings,
		"data_type":             "IMAGE",
	}

	var out Dataset
	if err := c.api.Post(ctx, "/user/datasets/", payload, &out); err != nil {
		return nil, fmt.Errorf("failed to add dataset %s: %w", params.Name, err)
	}
	return &out, nil
}

// UpdateDatasetParams holds the dataset fields to change. Nil fields are
// left untouched.
type UpdateDatasetParams struct {
	Description        *string
	TaskType           *TaskType
	TaskAttributes     *TaskAttributes
	Category           *Category
	Public             *bool
	Readme             *string
	EnableSkipLabeling *bool
	EnableSkipReview   *bool
	EnableRatings      *bool
}

// UpdateDataset applies a partial update to a dataset.
func (c *Client) UpdateDataset(ctx context.Context, identifier string, params UpdateDatasetParams) (*Dataset, error) {
	payload := map[string]any{}
	putIfSet(payload, "description", params.Description)
	putIfSet(payload, "task_type", params.TaskType)
	putIfSet(payload, "category", params.Category)
	putIfSet(payload, "public", params.Public)
	putIfSet(payload, "readme", params.Readme)
	putIfSet(payload, "enable_skip_labeling", params.EnableSkipLabeling)
	putIfSet(payload, "enable_skip_reviewing", params.EnableSkipReview)
	putIfSet(payload, "enable_ratings", params.EnableRatings)
	if params.TaskAttributes != nil {
		payload["task_attributes"] = params.TaskAttributes
	}

	var out Dataset
	if err := c.api.Patch(ctx, fmt.Sprintf("/datasets/%s/", identifier), payload, &out); err != nil {
		return nil, fmt.Errorf("failed to update dataset %s: %w", identifier, err)
	}
	c.logger.Info("updated dataset", "dataset", identifier)
	return &out, nil
}

// DeleteDataset deletes a dataset.
func (c *Client) DeleteDataset(ctx context.Context, identifier string) error {
	if err := c.api.Delete(ctx, fmt.Sprintf("/datasets/%s/", identifier)); err != nil {
		return fmt.Errorf("failed to delete dataset %s: %w", identifier, err)
	}
	return nil
}

// AddDatasetCollaborator grants a user a role on a dataset.
// An empty role defaults to labeler.
func (c *Client) AddDatasetCollaborator(ctx context.Context, identifier, username string, role Role) (*Collaborator, error) {
	if role == "" {
		role = RoleLabeler
	}

	payload := map[string]any{"user": username, "role": role}
	var out Collaborator
	if err := c.api.Post(ctx, fmt.Sprintf("/datasets/%s/collaborators/", identifier), payload, &out); err != nil {
		return nil, fmt.Errorf("failed to add collaborator %s to %s: %w", username, identifier, err)
	}
	return &out, nil
}

// DeleteDatasetCollaborator removes a collaborator from a dataset.
func (c *Client) DeleteDatasetCollaborator(ctx context.Context, identifier, username string) error {
	if err := c.api.Delete(ctx, fmt.Sprintf("/datasets/%s/collaborators/%s", identifier, username)); err != nil {
		return fmt.Errorf("failed to delete collaborator %s from %s: %w", username, identifier, err)
	}
	return nil
}

// SampleQuery filters and paginates a sample listing.
type SampleQuery struct {
	// Name filters on sample name substrings.
	Name string

	// LabelStatus restricts results to samples whose ground-truth label
	// has one of the given statuses.
	LabelStatus []LabelStatus

	// Metadata filters on "key:value" metadata attributes.
	Metadata []string

	// Sort is one of "name", "created", "priority". Defaults to name order.
	Sort string

	// Descending reverses the sort direction.
	Descending bool

	// PerPage and Page control pagination. PerPage defaults to 1000,
	// Page to 1.
	PerPage int
	Page    int
}

func (q SampleQuery) encode() string {
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 1000
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	v := url.Values{}
	v.Set("per_page", fmt.Sprint(perPage))
	v.Set("page", fmt.Sprint(page))

	if q.Name != "" {
		v.Set("name__contains", q.Name)
	}
	if len(q.Metadata) > 0 {
		v.Set("filters", strings.Join(q.Metadata, ","))
	}
	if len(q.LabelStatus) > 0 {
		statuses := make([]string, len(q.LabelStatus))
		for i, s := range q.LabelStatus {
			statuses[i] = string(s)
		}
		v.Set("labelset", "ground-truth")
		v.Set("label_status", strings.Join(statuses, ","))
	}

	switch q.Sort {
	case "", "name":
		// Name order is the API default.
	case "created", "priority":
		field := q.Sort
		if field == "created" {
			field = "created_at"
		}
		if q.Descending {
			field = "-" + field
		}
		v.Set("sort", field)
	}

	return v.Encode()
}

// Samples lists the samples in a dataset.
func (c *Client) Samples(ctx context.Context, identifier string, query SampleQuery) ([]Sample, error) {
	var out []Sample
	path := fmt.Sprintf("/datasets/%s/samples/?%s", identifier, query.encode())
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("failed to list samples of %s: %w", identifier, err)
	}
	return out, nil
}

// Sample returns a sample by uuid. When labelset is non-empty the
// sample's label for that labelset is included.
func (c *Client) Sample(ctx context.Context, sampleUUID, labelset string) (*Sample, error) {
	if err := validUUID(sampleUUID); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/samples/%s/", sampleUUID)
	if labelset != "" {
		path += "?labelset=" + url.QueryEscape(labelset)
	}

	var out Sample
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("failed to get sample %s: %w", sampleUUID, err)
	}
	return &out, nil
}

// AddSampleParams describes a sample to create. Attributes is the
// task-specific payload, e.g. ImageSampleAttributes.
type AddSampleParams struct {
	Name       string
	Attributes any
	Metadata   map[string]any
	Priority   float64
}

// AddSample adds a sample to a dataset.
func (c *Client) AddSample(ctx context.Context, identifier string, params AddSampleParams) (*Sample, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("sample name is required")
	}
	if params.Attributes == nil {
		return nil, fmt.Errorf("sample attributes are required")
	}

	payload := map[string]any{
		"name":       params.Name,
		"attributes": params.Attributes,
		"priority":   params.Priority,
	}
	if params.Metadata != nil {
		payload["metadata"] = params.Metadata
	}

	var out Sample
	if err := c.api.Post(ctx, fmt.Sprintf("/datasets/%s/samples/", identifier), payload, &out); err != nil {
		return nil, fmt.Errorf("failed to add sample %s to %s: %w", params.Name, identifier, err)
	}
	c.logger.Info("added sample", "dataset", identifier, "name", params.Name, "uuid", out.UUID)
	return &out, nil
}

// UpdateSampleParams holds the sample fields to change. Nil fields are
// left untouched.
type UpdateSampleParams struct {
	Name       *string
	Attributes any
	Metadata   map[string]any
	Priority   *float64
}

// UpdateSample applies a partial update to a sample.
func (c *Client) UpdateSample(ctx context.Context, sampleUUID string, params UpdateSampleParams) (*Sample, error) {
	if err := validUUID(sampleUUID); err != nil {
		return nil, err
	}

	payload := map[string]any{}
	putIfSet(payload, "name", params.Name)
	putIfSet(payload, "priority", params.Priority)
	if params.Attributes != nil {
		payload["attributes"] = params.Attributes
	}
	if params.Metadata != nil {
		payload["metadata"] = params.Metadata
	}

	var out Sample
	if err := c.api.Patch(ctx, fmt.Sprintf("/samples/%s/", sampleUUID), payload, &out); err != nil {
		return nil, fmt.Errorf("failed to update sample %s: %w", sampleUUID, err)
	}
	return &out, nil
}

// DeleteSample deletes a sample.
func (c *Client) DeleteSample(ctx context.Context, sampleUUID string) error {
	if err := validUUID(sampleUUID); err != nil {
		return err
	}
	if err := c.api.Delete(ctx, fmt.Sprintf("/samples/%s/", sampleUUID)); err != nil {
		return fmt.Errorf("failed to delete sample %s: %w", sampleUUID, err)
	}
	return nil
}

// Label returns the label of a sample. An empty labelset defaults to
// ground-truth.
func (c *Client) Label(ctx context.Context, sampleUUID, labelset string) (*Label, error) {
	if err := validUUID(sampleUUID); err != nil {
		return nil, err
	}
	if labelset == "" {
		labelset = "ground-truth"
	}

	var out Label
	if err := c.api.Get(ctx, fmt.Sprintf("/labels/%s/%s/", sampleUUID, labelset), &out); err != nil {
		return nil, fmt.Errorf("failed to get label of sample %s: %w", sampleUUID, err)
	}
	return &out, nil
}

// AddLabelParams describes a label to attach. Attributes is the
// task-specific payload, e.g. SegmentationLabelAttributes. An empty
// status defaults to PRELABELED.
type AddLabelParams struct {
	Attributes any
	Status     LabelStatus
	Score      *float64
}

// AddLabel attaches a label to a sample within a labelset.
func (c *Client) AddLabel(ctx context.Context, sampleUUID, labelset string, params AddLabelParams) (*Label, error) {
	if err := validUUID(sampleUUID); err != nil {
		return nil, err
	}
	if labelset == "" {
		return nil, fmt.Errorf("labelset is required")
	}
	if params.Attributes == nil {
		return nil, fmt.Errorf("label attributes are required")
	}
	if params.Status == "" {
		params.Status = LabelStatusPrelabeled
	}

	payload := map[string]any{
		"label_status": params.Status,
		"attributes":   params.Attributes,
	}
	putIfSet(payload, "score", params.Score)

	var out Label
	if err := c.api.Put(ctx, fmt.Sprintf("/labels/%s/%s/", sampleUUID, labelset), payload, &out); err != nil {
		return nil, fmt.Errorf("failed to add label to sample %s: %w", sampleUUID, err)
	}
	return &out, nil
}

// UpdateLabelParams holds the label fields to change. Nil or empty
// fields are left untouched.
type UpdateLabelParams struct {
	Attributes any
	Status     LabelStatus
	Score      *float64
}

// UpdateLabel applies a partial update to a label.
func (c *Client) UpdateLabel(ctx context.Context, sampleUUID, labelset string, params UpdateLabelParams) (*Label, error) {
	if err := validUUID(sampleUUID); err != nil {
		return nil, err
	}

	payload := map[string]any{}
	if params.Attributes != nil {
		payload["attributes"] = params.Attributes
	}
	if params.Status != "" {
		payload["label_status"] = params.Status
	}
	putIfSet(payload, "score", params.Score)

	var out Label
	if err := c.api.Patch(ctx, fmt.Sprintf("/labels/%s/%s/", sampleUUID, labelset), payload, &out); err != nil {
		return nil, fmt.Errorf("failed to update label of sample %s: %w", sampleUUID, err)
	}
	return &out, nil
}

// DeleteLabel deletes the label of a sample within a labelset.
func (c *Client) DeleteLabel(ctx context.Context, sampleUUID, labelset string) error {
	if err := validUUID(sampleUUID); err != nil {
		return err
	}
	if err := c.api.Delete(ctx, fmt.Sprintf("/labels/%s/%s/", sampleUUID, labelset)); err != nil {
		return fmt.Errorf("failed to delete label of sample %s: %w", sampleUUID, err)
	}
	return nil
}

// Labelsets lists the labelsets of a dataset.
func (c *Client) Labelsets(ctx context.Context, identifier string) ([]Labelset, error) {
	var out []Labelset
	if err := c.api.Get(ctx, fmt.Sprintf("/datasets/%s/labelsets/", identifier), &out); err != nil {
		return nil, fmt.Errorf("failed to list labelsets of %s: %w", identifier, err)
	}
	return out, nil
}

// Labelset returns a labelset by name.
func (c *Client) Labelset(ctx context.Context, identifier, name string) (*Labelset, error) {
	var out Labelset
	if err := c.api.Get(ctx, fmt.Sprintf("/datasets/%s/labelsets/%s/", identifier, name), &out); err != nil {
		return nil, fmt.Errorf("failed to get labelset %s of %s: %w", name, identifier, err)
	}
	return &out, nil
}

// AddLabelset adds a labelset to a dataset.
func (c *Client) AddLabelset(ctx context.Context, identifier, name, description string) (*Labelset, error) {
	payload := map[string]any{
		"name":        name,
		"description": description,
		"attributes":  "{}",
	}

	var out Labelset
	if err := c.api.Post(ctx, fmt.Sprintf("/datasets/%s/labelsets/", identifier), payload, &out); err != nil {
		return nil, fmt.Errorf("failed to add labelset %s to %s: %w", name, identifier, err)
	}
	return &out, nil
}

// DeleteLabelset deletes a labelset from a dataset.
func (c *Client) DeleteLabelset(ctx context.Context, identifier, name string) error {
	if err := c.api.Delete(ctx, fmt.Sprintf("/datasets/%s/labelsets/%s/", identifier, name)); err != nil {
		return fmt.Errorf("failed to delete labelset %s of %s: %w", name, identifier, err)
	}
	return nil
}

// Releases lists the releases of a dataset.
func (c *Client) Releases(ctx context.Context, identifier string) ([]Release, error) {
	var out []Release
	if err := c.api.Get(ctx, fmt.Sprintf("/datasets/%s/releases/", identifier), &out); err != nil {
		return nil, fmt.Errorf("failed to list releases of %s: %w", identifier, err)
	}
	return out, nil
}

// Release returns a release by name.
func (c *Client) Release(ctx context.Context, identifier, name string) (*Release, error) {
	var out Release
	if err := c.api.Get(ctx, fmt.Sprintf("/datasets/%s/releases/%s/", identifier, name), &out); err != nil {
		return nil, fmt.Errorf("failed to get release %s of %s: %w", name, identifier, err)
	}
	return &out, nil
}

// AddRelease triggers a new release of a dataset's labels. The release
// is built asynchronously; poll Release until its status is SUCCEEDED.
func (c *Client) AddRelease(ctx context.Context, identifier, name, description string) (*Release, error) {
	payload := map[string]any{"name": name, "description": description}

	var out Release
	if err := c.api.Post(ctx, fmt.Sprintf("/datasets/%s/releases/", identifier), payload, &out); err != nil {
		return nil, fmt.Errorf("failed to add release %s to %s: %w", name, identifier, err)
	}
	return &out, nil
}

// DeleteRelease deletes a release from a dataset.
func (c *Client) DeleteRelease(ctx context.Context, identifier, name string) error {
	if err := c.api.Delete(ctx, fmt.Sprintf("/datasets/%s/releases/%s/", identifier, name)); err != nil {
		return fmt.Errorf("failed to delete release %s of %s: %w", name, identifier, err)
	}
	return nil
}

// UploadAsset registers an asset and uploads its content to the
// storage backend using the returned presigned post.
func (c *Client) UploadAsset(ctx context.Context, r io.Reader, filename string) (*File, error) {
	if filename == "" {
		filename = "label.png"
	}

	var f File
	if err := c.api.Post(ctx, "/assets/", map[string]any{"filename": filename}, &f); err != nil {
		return nil, fmt.Errorf("failed to register asset %s: %w", filename, err)
	}

	if err := c.uploadToStorage(ctx, r, filename, f.PresignedPostFields); err != nil {
		return nil, fmt.Errorf("failed to upload asset %s: %w", filename, err)
	}

	c.logger.Info("uploaded asset", "filename", filename, "uuid", f.UUID)
	return &f, nil
}

// uploadToStorage posts the file as a multipart form to the presigned
// URL. The form fields must precede the file part.
func (c *Client) uploadToStorage(ctx context.Context, r io.Reader, filename string, post PresignedPostFields) error {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for key, value := range post.Fields {
		if err := w.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, post.URL, body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("storage backend returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func validUUID(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid sample uuid %q: %w", s, err)
	}
	return nil
}

// putIfSet stores *v under key when v is non-nil.
func putIfSet[T any](payload map[string]any, key string, v *T) {
	if v != nil {
		payload[key] = *v
	}
}

func boolOrDefault(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}
