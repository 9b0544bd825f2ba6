package core

import "time"

// ArticleType distinguishes free articles from articles with a paid section.
type ArticleType string

const (
	ArticleFree ArticleType = "free"
	ArticlePaid ArticleType = "paid"
)

// CoverKey is the image map key under which the cover image is stored.
const CoverKey = "cover"

// MaxReferences caps the reference list attached to an article.
const MaxReferences = 7

// Default palette used when an article carries no creative direction.
const (
	DefaultPrimaryColor = "#2563eb"
	DefaultTextColor    = "#1f2937"
	DefaultAccentColor  = "#f59e0b"
)

// Reference is a citation taken from grounding metadata.
type Reference struct {
	URI   string `json:"uri"`   // Source URI as returned by the search tool
	Title string `json:"title"` // Page title, may be empty
}

// AssetKind tags the variant held by an ImageAsset.
type AssetKind string

const (
	AssetImage      AssetKind = "image"
	AssetScreenshot AssetKind = "screenshot"
	AssetError      AssetKind = "error"
)

// ImageAsset is a resolved image map entry: generated image bytes, a
// screenshot instruction for the author, or an explicit error marker.
type ImageAsset struct {
	Kind        AssetKind `json:"kind"`
	Data        []byte    `json:"-"`                     // Binary payload, only for AssetImage
	MIMEType    string    `json:"mime_type,omitempty"`   // MIME type of Data
	Instruction string    `json:"instruction,omitempty"` // Only for AssetScreenshot
}

// ImageData builds a successful image entry.
func ImageData(data []byte, mimeType string) ImageAsset {
	return ImageAsset{Kind: AssetImage, Data: data, MIMEType: mimeType}
}

// ScreenshotInstruction builds a screenshot instruction entry.
func ScreenshotInstruction(instruction string) ImageAsset {
	return ImageAsset{Kind: AssetScreenshot, Instruction: instruction}
}

// ImageError builds the error sentinel recorded for a failed image task.
func ImageError() ImageAsset {
	return ImageAsset{Kind: AssetError}
}

// IsImage reports whether the entry holds a usable image payload.
func (a ImageAsset) IsImage() bool {
	return a.Kind == AssetImage && len(a.Data) > 0
}

// Outline is a candidate article structure offered for selection.
type Outline struct {
	Title        string   `json:"title"`
	Introduction string   `json:"introduction"`
	Headings     []string `json:"headings"`
}

// CreativeDirection is a named visual style with a primary/text/accent palette.
type CreativeDirection struct {
	Style   string   `json:"style"`
	Palette []string `json:"palette"`
}

func (d *CreativeDirection) color(i int, fallback string) string {
	if d == nil || len(d.Palette) <= i || d.Palette[i] == "" {
		return fallback
	}
	return d.Palette[i]
}

// Primary returns the primary colour, or the default when absent.
func (d *CreativeDirection) Primary() string { return d.color(0, DefaultPrimaryColor) }

// Text returns the text colour, or the default when absent.
func (d *CreativeDirection) Text() string { return d.color(1, DefaultTextColor) }

// Accent returns the accent colour, or the default when absent.
func (d *CreativeDirection) Accent() string { return d.color(2, DefaultAccentColor) }

// ImageTask is one image to generate. Key is the literal placeholder text.
type ImageTask struct {
	Key         string
	Prompt      string
	OverlayText string
}

// Enhancement bundles distribution helpers produced after writing.
type Enhancement struct {
	TitleSuggestions []string `json:"title_suggestions,omitempty"`
	ShareText        string   `json:"share_text,omitempty"`
	Hashtags         []string `json:"hashtags,omitempty"`
	MetaDescription  string   `json:"meta_description,omitempty"`
}

// IsEmpty reports whether the enhancement stage produced nothing.
func (e Enhancement) IsEmpty() bool {
	return len(e.TitleSuggestions) == 0 && e.ShareText == "" && len(e.Hashtags) == 0 && e.MetaDescription == ""
}

// FAQItem is a single question and answer pair.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Performance is the predicted reception of an article plus any actual
// numbers the author recorded afterwards.
type Performance struct {
	Score          int                `json:"score"` // 0-100
	Summary        string             `json:"summary,omitempty"`
	Strengths      []string           `json:"strengths,omitempty"`
	Improvements   []string           `json:"improvements,omitempty"`
	PredictedViews int                `json:"predicted_views,omitempty"`
	Actual         *ActualPerformance `json:"actual,omitempty"`
}

// ActualPerformance holds numbers recorded by the author after publishing.
type ActualPerformance struct {
	Views      int       `json:"views"`
	Likes      int       `json:"likes"`
	Comments   int       `json:"comments"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FactCheckStatus is unchecked until a fact check has completed.
type FactCheckStatus string

const (
	FactCheckUnchecked FactCheckStatus = "unchecked"
	FactCheckChecked   FactCheckStatus = "checked"
)

// FactCheckResult is the verdict on one claim.
type FactCheckResult struct {
	Claim       string `json:"claim"`
	Verdict     string `json:"verdict"` // correct, incorrect or unverifiable
	Explanation string `json:"explanation,omitempty"`
	Correction  string `json:"correction,omitempty"`
}

// FactCheck is the fact-check bundle stored on an article.
type FactCheck struct {
	Status    FactCheckStatus   `json:"status"`
	Results   []FactCheckResult `json:"results,omitempty"`
	CheckedAt *time.Time        `json:"checked_at,omitempty"`
}

// VideoStatus tracks a long-running video generation.
type VideoStatus string

const (
	VideoPending   VideoStatus = "pending"
	VideoCompleted VideoStatus = "completed"
	VideoFailed    VideoStatus = "failed"
)

// Video holds the state of a generated teaser video.
type Video struct {
	URL       string      `json:"url,omitempty"`
	Status    VideoStatus `json:"status"`
	Operation string      `json:"operation,omitempty"` // Provider operation handle
	Error     string      `json:"error,omitempty"`
}

// AuditSuggestion is one freshness improvement proposed by the auditor.
type AuditSuggestion struct {
	Area           string `json:"area"`
	Reason         string `json:"reason"`
	SuggestionText string `json:"suggestion_text"`
}

// BrandVoice is the optional writing guide applied to every draft.
type BrandVoice struct {
	Principles string `json:"principles"`
	Example    string `json:"example"`
}

// IsEmpty reports whether no brand voice has been configured.
func (b *BrandVoice) IsEmpty() bool {
	return b == nil || (b.Principles == "" && b.Example == "")
}

// Input is everything the author provides before generation starts.
type Input struct {
	Theme              string      `json:"theme"`
	Persona            string      `json:"persona"`
	ExpertPersona      string      `json:"expert_persona,omitempty"`
	Tone               string      `json:"tone,omitempty"`
	Type               ArticleType `json:"type"`
	ReferenceText      string      `json:"reference_text,omitempty"`
	Price              int         `json:"price,omitempty"`
	ProductDescription string      `json:"product_description,omitempty"`
	Research           bool        `json:"research,omitempty"` // Run the grounded research stage first
}

// Article is the central entity produced by the pipeline.
type Article struct {
	ID                 int64       `json:"id"` // Creation time in milliseconds
	Title              string      `json:"title"`
	Theme              string      `json:"theme"`
	Persona            string      `json:"persona"`
	ExpertPersona      string      `json:"expert_persona,omitempty"`
	Tone               string      `json:"tone,omitempty"`
	Type               ArticleType `json:"type"`
	CreatedAt          time.Time   `json:"created_at"`
	Price              int         `json:"price,omitempty"`
	ProductDescription string      `json:"product_description,omitempty"`

	Markdown    string      `json:"markdown"`               // Source of truth
	MarkupCache string      `json:"markup_cache,omitempty"` // Derived from Markdown, see SetMarkdown
	References  []Reference `json:"references,omitempty"`

	// ImageMap is stored by the asset store, never in the metadata record.
	ImageMap map[string]ImageAsset `json:"-"`

	Enhancement      Enhancement        `json:"enhancement"`
	FAQ              []FAQItem          `json:"faq,omitempty"`
	Performance      *Performance       `json:"performance,omitempty"`
	FactCheck        FactCheck          `json:"fact_check"`
	Direction        *CreativeDirection `json:"direction,omitempty"`
	Video            *Video             `json:"video,omitempty"`
	ScheduledAt      *time.Time         `json:"scheduled_at,omitempty"`
	LastAuditedAt    *time.Time         `json:"last_audited_at,omitempty"`
	AuditSuggestions []AuditSuggestion  `json:"audit_suggestions,omitempty"`
}

// NewArticle creates an article for the given input with its id derived from now.
func NewArticle(in Input, now time.Time) *Article {
	return &Article{
		ID:                 now.UnixMilli(),
		Theme:              in.Theme,
		Persona:            in.Persona,
		ExpertPersona:      in.ExpertPersona,
		Tone:               in.Tone,
		Type:               in.Type,
		CreatedAt:          now,
		Price:              in.Price,
		ProductDescription: in.ProductDescription,
		FactCheck:          FactCheck{Status: FactCheckUnchecked},
		ImageMap:           map[string]ImageAsset{},
	}
}

// SetMarkdown replaces the markdown body and clears the markup cache.
func (a *Article) SetMarkdown(md string) {
	a.Markdown = md
	a.MarkupCache = ""
}

// InvalidateMarkup clears the cached markup.
func (a *Article) InvalidateMarkup() {
	a.MarkupCache = ""
}

// Cover returns the cover image entry, if any.
func (a *Article) Cover() (ImageAsset, bool) {
	asset, ok := a.ImageMap[CoverKey]
	return asset, ok
}

// HasPendingVideo reports whether a video generation is in flight.
func (a *Article) HasPendingVideo() bool {
	return a.Video != nil && a.Video.Status == VideoPending && a.Video.Operation != ""
}
