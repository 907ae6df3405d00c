package client

import "encoding/json"

// LabelStatus is the review state of a label.
type LabelStatus string

const (
	LabelStatusReviewed            LabelStatus = "REVIEWED"
	LabelStatusReviewingInProgress LabelStatus = "REVIEWING_IN_PROGRESS"
	LabelStatusLabeled             LabelStatus = "LABELED"
	LabelStatusLabelingInProgress  LabelStatus = "LABELING_IN_PROGRESS"
	LabelStatusRejected            LabelStatus = "REJECTED"
	LabelStatusPrelabeled          LabelStatus = "PRELABELED"
	LabelStatusSkipped             LabelStatus = "SKIPPED"
)

// TaskType identifies the kind of annotation task a dataset holds.
type TaskType string

const (
	TaskTypeSegmentationBitmap        TaskType = "segmentation-bitmap"
	TaskTypeSegmentationBitmapHighres TaskType = "segmentation-bitmap-highres"
	TaskTypeImageVectorSequence       TaskType = "image-vector-sequence"
	TaskTypeBboxes                    TaskType = "bboxes"
	TaskTypeVector                    TaskType = "vector"
	TaskTypePointcloudCuboid          TaskType = "pointcloud-cuboid"
	TaskTypePointcloudSegmentation    TaskType = "pointcloud-segmentation"
	TaskTypeTextNamedEntities         TaskType = "text-named-entities"
	TaskTypeTextSpanCategorization    TaskType = "text-span-categorization"
)

// Role is a collaborator's role on a dataset.
type Role string

const (
	RoleLabeler  Role = "labeler"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// ReleaseStatus is the build state of a release.
type ReleaseStatus string

const (
	ReleaseStatusPending   ReleaseStatus = "PENDING"
	ReleaseStatusSucceeded ReleaseStatus = "SUCCEEDED"
	ReleaseStatusFailed    ReleaseStatus = "FAILED"
)

// Category is a dataset's subject category.
type Category string

const (
	CategoryStreetScenery Category = "street_scenery"
	CategoryGarden        Category = "garden"
	CategoryAgriculture   Category = "agriculture"
	CategorySatellite     Category = "satellite"
	CategoryPeople        Category = "people"
	CategoryMedical       Category = "medical"
	CategoryOther         Category = "other"
)

// URL wraps an optional url field.
type URL struct {
	URL string `json:"url,omitempty"`
}

// User is a platform account.
type User struct {
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
	Email     string `json:"email,omitempty"`
}

// Collaborator is a user together with their role on a dataset.
type Collaborator struct {
	User User `json:"user"`
	Role Role `json:"role"`
}

// LabelStats summarizes label counts for a dataset.
type LabelStats struct {
	Total      int `json:"TOTAL,omitempty"`
	Labeled    int `json:"LABELED,omitempty"`
	Unlabeled  int `json:"UNLABELED,omitempty"`
	Prelabeled int `json:"PRELABELED,omitempty"`
}

// TaskAttribute describes one configurable object attribute. InputType
// selects which of the optional fields apply.
type TaskAttribute struct {
	Name         string   `json:"name"`
	InputType    string   `json:"input_type"`
	Values       []string `json:"values,omitempty"`
	DefaultValue any      `json:"default_value,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Step         *float64 `json:"step,omitempty"`
}

// TaskAttributeCategory is one labeling category with its attributes.
type TaskAttributeCategory struct {
	Name       string          `json:"name"`
	ID         int             `json:"id"`
	Color      []float64       `json:"color,omitempty"`
	Attributes []TaskAttribute `json:"attributes,omitempty"`
}

// TaskAttributes is the category/attribute schema of a dataset.
type TaskAttributes struct {
	FormatVersion string                  `json:"format_version,omitempty"`
	Categories    []TaskAttributeCategory `json:"categories,omitempty"`
}

// Statistics holds per-labelset sample counts.
type Statistics struct {
	PrelabeledCount int `json:"prelabeled_count"`
	LabeledCount    int `json:"labeled_count"`
	ReviewedCount   int `json:"reviewed_count"`
	RejectedCount   int `json:"rejected_count"`
	SkippedCount    int `json:"skipped_count"`
	SamplesCount    int `json:"samples_count"`
}

// Labelset is a named collection of labels within a dataset.
type Labelset struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	UUID          string      `json:"uuid,omitempty"`
	TaskType      TaskType    `json:"task_type,omitempty"`
	IsGroundtruth bool        `json:"is_groundtruth,omitempty"`
	Statistics    *Statistics `json:"statistics,omitempty"`
	CreatedAt     string      `json:"created_at,omitempty"`
}

// Dataset is a collection of samples to be labeled.
type Dataset struct {
	Name               string          `json:"name"`
	FullName           string          `json:"full_name,omitempty"`
	ClonedFrom         string          `json:"cloned_from,omitempty"`
	Description        string          `json:"description"`
	DataType           string          `json:"data_type"`
	Category           Category        `json:"category"`
	Public             bool            `json:"public"`
	Owner              User            `json:"owner"`
	CreatedAt          string          `json:"created_at"`
	EnableRatings      bool            `json:"enable_ratings"`
	EnableSkipLabeling bool            `json:"enable_skip_labeling"`
	EnableSkipReview   bool            `json:"enable_skip_reviewing"`
	TaskType           TaskType        `json:"task_type"`
	TaskAttributes     *TaskAttributes `json:"task_attributes,omitempty"`
	LabelStats         *LabelStats     `json:"label_stats,omitempty"`
	SamplesCount       json.Number     `json:"samples_count,omitempty"`
	CollaboratorsCount int             `json:"collaborators_count,omitempty"`
	Labelsets          []Labelset      `json:"labelsets,omitempty"`
	Role               string          `json:"role,omitempty"`
	Readme             string          `json:"readme,omitempty"`
}

// Sample is a single item of a dataset. Attributes is the task-specific
// payload; decode it with one of the typed helpers.
type Sample struct {
	UUID       string          `json:"uuid"`
	Name       string          `json:"name"`
	Attributes json.RawMessage `json:"attributes"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	CreatedAt  string          `json:"created_at"`
	CreatedBy  string          `json:"created_by"`
	Priority   float64         `json:"priority"`
	Label      *Label          `json:"label,omitempty"`
}

// ImageSampleAttributes is the payload of an image sample.
type ImageSampleAttributes struct {
	Image URL `json:"image"`
}

// ImageFrame is one frame of an image-sequence sample.
type ImageFrame struct {
	Image URL    `json:"image"`
	Name  string `json:"name,omitempty"`
}

// ImageSequenceSampleAttributes is the payload of an image-sequence sample.
type ImageSequenceSampleAttributes struct {
	Frames []ImageFrame `json:"frames"`
}

// TextSampleAttributes is the payload of a text sample.
type TextSampleAttributes struct {
	Text string `json:"text"`
}

// ImageAttributes decodes the sample payload as an image sample.
func (s *Sample) ImageAttributes() (*ImageSampleAttributes, error) {
	var out ImageSampleAttributes
	if err := json.Unmarshal(s.Attributes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TextAttributes decodes the sample payload as a text sample.
func (s *Sample) TextAttributes() (*TextSampleAttributes, error) {
	var out TextSampleAttributes
	if err := json.Unmarshal(s.Attributes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Label is an annotation attached to a sample within a labelset.
// Attributes is the task-specific payload; decode it with one of the
// typed helpers.
type Label struct {
	SampleUUID  string          `json:"sample_uuid,omitempty"`
	LabelType   TaskType        `json:"label_type,omitempty"`
	LabelStatus LabelStatus     `json:"label_status"`
	Attributes  json.RawMessage `json:"attributes"`
	Score       *float64        `json:"score,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
	ReviewedAt  string          `json:"reviewed_at,omitempty"`
	ReviewedBy  string          `json:"reviewed_by,omitempty"`
}

// Annotation is one labeled instance in a segmentation label.
type Annotation struct {
	ID         int            `json:"id"`
	CategoryID int            `json:"category_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// SegmentationLabelAttributes is the payload of a segmentation-bitmap label.
type SegmentationLabelAttributes struct {
	Annotations        []Annotation `json:"annotations"`
	SegmentationBitmap URL          `json:"segmentation_bitmap"`
	FormatVersion      string       `json:"format_version,omitempty"`
}

// VectorAnnotation is one vector shape in a vector label.
type VectorAnnotation struct {
	ID         int            `json:"id"`
	CategoryID int            `json:"category_id"`
	Points     [][]float64    `json:"points"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// VectorLabelAttributes is the payload of a vector label.
type VectorLabelAttributes struct {
	Annotations   []VectorAnnotation `json:"annotations"`
	FormatVersion string             `json:"format_version,omitempty"`
}

// TextAnnotation is one categorized character span in a text label.
type TextAnnotation struct {
	Start      int `json:"start"`
	End        int `json:"end"`
	CategoryID int `json:"category_id"`
}

// TextLabelAttributes is the payload of a text label.
type TextLabelAttributes struct {
	Annotations   []TextAnnotation `json:"annotations"`
	FormatVersion string           `json:"format_version,omitempty"`
}

// SegmentationAttributes decodes the label payload as a segmentation label.
func (l *Label) SegmentationAttributes() (*SegmentationLabelAttributes, error) {
	var out SegmentationLabelAttributes
	if err := json.Unmarshal(l.Attributes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VectorAttributes decodes the label payload as a vector label.
func (l *Label) VectorAttributes() (*VectorLabelAttributes, error) {
	var out VectorLabelAttributes
	if err := json.Unmarshal(l.Attributes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TextAttributes decodes the label payload as a text label.
func (l *Label) TextAttributes() (*TextLabelAttributes, error) {
	var out TextLabelAttributes
	if err := json.Unmarshal(l.Attributes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Release is a versioned export of a dataset's labels.
type Release struct {
	UUID         string        `json:"uuid"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	ReleaseType  string        `json:"release_type"`
	Attributes   URL           `json:"attributes"`
	Status       ReleaseStatus `json:"status"`
	StatusInfo   string        `json:"status_info"`
	CreatedAt    string        `json:"created_at"`
	SamplesCount int           `json:"samples_count"`
}

// PresignedPostFields holds the upload target returned by asset registration.
type PresignedPostFields struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// File is an uploaded asset.
type File struct {
	UUID                string              `json:"uuid"`
	Filename            string              `json:"filename"`
	URL                 string              `json:"url"`
	CreatedAt           string              `json:"created_at"`
	PresignedPostFields PresignedPostFields `json:"presignedPostFields"`
}
