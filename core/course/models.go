package course

import (
	"time"

	"github.com/trezcool/masomo-console/core"
)

// Course statuses
const (
	StatusDraft     = "Draft"
	StatusActive    = "Active"
	StatusPublished = "Published"
	StatusCompleted = "Completed"
	StatusArchived  = "Archived"
)

// Content types
const (
	TypeVideo           = "video"
	TypeAudio           = "audio"
	TypePPT             = "ppt"
	TypePDF             = "pdf"
	TypeYoutube         = "youtube"
	TypeVimeo           = "vimeo"
	TypeRecording       = "recording"
	TypeScreenRecording = "screen-recording"
	TypeDocx            = "docx"
	TypeScorm           = "scorm"
	TypeLTI             = "lti"
	TypeQuiz            = "quiz"
	TypeImage           = "image"
	TypeAnimation       = "animation"
)

// Enrollment statuses
const (
	EnrollmentPending   = "pending"
	EnrollmentEnrolled  = "enrolled"
	EnrollmentCompleted = "completed"
	EnrollmentWithdrawn = "withdrawn"
)

var (
	Statuses = []string{StatusDraft, StatusActive, StatusPublished, StatusCompleted, StatusArchived}
	Types    = []string{
		TypeVideo, TypeAudio, TypePPT, TypePDF, TypeYoutube, TypeVimeo, TypeRecording,
		TypeScreenRecording, TypeDocx, TypeScorm, TypeLTI, TypeQuiz, TypeImage, TypeAnimation,
	}
	EnrollmentStatuses = []string{EnrollmentPending, EnrollmentEnrolled, EnrollmentCompleted, EnrollmentWithdrawn}

	// url types point to an external player, they always need a URL
	urlTypes = []string{TypeYoutube, TypeVimeo, TypeLTI}
)

// Audit is shared by every level of the hierarchy.
type Audit struct {
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func newAudit(by string) Audit {
	now := core.NowFunc()
	return Audit{CreatedBy: by, CreatedAt: now, UpdatedAt: now}
}

// Features are display-only course options.
type Features struct {
	Certificate     bool     `json:"certificate"`
	DiscussionForum bool     `json:"discussion_forum"`
	Badges          []string `json:"badges"`
	Integrations    []string `json:"integrations"`
}

type Course struct {
	ID                  string   `json:"id"`
	Code                string   `json:"code"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Category            string   `json:"category"`
	Department          string   `json:"department"`
	Instructor          string   `json:"instructor"`
	Level               string   `json:"level"`
	Language            string   `json:"language"`
	Duration            string   `json:"duration"`
	Credits             int      `json:"credits"`
	Capacity            int      `json:"capacity"`
	EnrolledStudents    int      `json:"enrolled_students"`
	Status              string   `json:"status"`
	StartDate           string   `json:"start_date"`
	EndDate             string   `json:"end_date"`
	AssignedFaculty     []string `json:"assigned_faculty"`
	AssignedHODs        []string `json:"assigned_hods"`
	AssignedDepartments []string `json:"assigned_departments"`
	Outcomes            []string `json:"outcomes"`
	Prerequisites       []string `json:"prerequisites"`
	Tags                []string `json:"tags"`
	Features            Features `json:"features"`
	Thumbnail           string   `json:"thumbnail"`
	Audit
}

// IsOpen reports whether the course is listed to students and parents.
func (c Course) IsOpen() bool {
	return c.Status == StatusPublished || c.Status == StatusActive
}

func (c Course) Fields() CourseFields {
	return CourseFields{
		Code:                c.Code,
		Title:               c.Title,
		Description:         c.Description,
		Category:            c.Category,
		Department:          c.Department,
		Instructor:          c.Instructor,
		Level:               c.Level,
		Language:            c.Language,
		Duration:            c.Duration,
		Credits:             c.Credits,
		Capacity:            c.Capacity,
		Status:              c.Status,
		StartDate:           c.StartDate,
		EndDate:             c.EndDate,
		AssignedFaculty:     c.AssignedFaculty,
		AssignedHODs:        c.AssignedHODs,
		AssignedDepartments: c.AssignedDepartments,
		Outcomes:            c.Outcomes,
		Prerequisites:       c.Prerequisites,
		Tags:                c.Tags,
		Features:            c.Features,
		Thumbnail:           c.Thumbnail,
	}
}

// CourseFields contains the information that may be provided to create or modify a Course.
type CourseFields struct {
	Code                string   `json:"code" validate:"required,notblank"`
	Title               string   `json:"title" validate:"required,notblank"`
	Description         string   `json:"description"`
	Category            string   `json:"category" validate:"required,notblank"`
	Department          string   `json:"department"`
	Instructor          string   `json:"instructor"`
	Level               string   `json:"level"`
	Language            string   `json:"language"`
	Duration            string   `json:"duration"`
	Credits             int      `json:"credits" validate:"gte=0"`
	Capacity            int      `json:"capacity" validate:"gte=0"`
	Status              string   `json:"status" validate:"omitempty,oneof=Draft Active Published Completed Archived"`
	StartDate           string   `json:"start_date" validate:"isodate"`
	EndDate             string   `json:"end_date" validate:"isodate"`
	AssignedFaculty     []string `json:"assigned_faculty"`
	AssignedHODs        []string `json:"assigned_hods"`
	AssignedDepartments []string `json:"assigned_departments"`
	Outcomes            []string `json:"outcomes"`
	Prerequisites       []string `json:"prerequisites"`
	Tags                []string `json:"tags"`
	Features            Features `json:"features"`
	Thumbnail           string   `json:"thumbnail" validate:"omitempty,url"`
}

func NewCourseFields() CourseFields {
	return CourseFields{
		Status:              StatusDraft,
		Language:            "English",
		AssignedFaculty:     []string{},
		AssignedHODs:        []string{},
		AssignedDepartments: []string{},
		Outcomes:            []string{},
		Prerequisites:       []string{},
		Tags:                []string{},
		Features:            Features{Badges: []string{}, Integrations: []string{}},
	}
}

func (f *CourseFields) Clean() {
	f.Code = core.CleanString(f.Code)
	f.Title = core.CleanString(f.Title)
	f.Description = core.CleanString(f.Description)
	f.Category = core.CleanString(f.Category)
	f.Department = core.CleanString(f.Department)
	f.Instructor = core.CleanString(f.Instructor)
	f.Level = core.CleanString(f.Level)
	f.Language = core.CleanString(f.Language)
	f.Duration = core.CleanString(f.Duration)
	f.StartDate = core.CleanString(f.StartDate)
	f.EndDate = core.CleanString(f.EndDate)
	f.AssignedFaculty = core.CleanStrings(f.AssignedFaculty)
	f.AssignedHODs = core.CleanStrings(f.AssignedHODs)
	f.AssignedDepartments = core.CleanStrings(f.AssignedDepartments)
	f.Outcomes = core.CleanStrings(f.Outcomes)
	f.Prerequisites = core.CleanStrings(f.Prerequisites)
	f.Tags = core.CleanStrings(f.Tags)
	f.Features.Badges = core.CleanStrings(f.Features.Badges)
	f.Features.Integrations = core.CleanStrings(f.Features.Integrations)
	f.Thumbnail = core.CleanString(f.Thumbnail)
	if f.Status == "" {
		f.Status = StatusDraft
	}
}

type Unit struct {
	ID          string `json:"id"`
	CourseID    string `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	IsPublished bool   `json:"is_published"`
	Audit
}

func (u Unit) Fields() UnitFields {
	return UnitFields{Title: u.Title, Description: u.Description, Order: u.Order, IsPublished: u.IsPublished}
}

type UnitFields struct {
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"gte=0"`
	IsPublished bool   `json:"is_published"`
}

type Topic struct {
	ID               string `json:"id"`
	CourseID         string `json:"course_id"`
	UnitID           string `json:"unit_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Order            int    `json:"order"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	IsPublished      bool   `json:"is_published"`
	Audit
}

func (t Topic) Fields() TopicFields {
	return TopicFields{
		Title:            t.Title,
		Description:      t.Description,
		Order:            t.Order,
		EstimatedMinutes: t.EstimatedMinutes,
		IsPublished:      t.IsPublished,
	}
}

type TopicFields struct {
	Title            string `json:"title" validate:"required,notblank"`
	Description      string `json:"description"`
	Order            int    `json:"order" validate:"gte=0"`
	EstimatedMinutes int    `json:"estimated_minutes" validate:"gte=0"`
	IsPublished      bool   `json:"is_published"`
}

type ScormConfig struct {
	Version         string `json:"version" validate:"omitempty,oneof=1.2 2004"`
	LaunchURL       string `json:"launch_url" validate:"omitempty,url"`
	MasteryScore    int    `json:"mastery_score" validate:"gte=0,lte=100"`
	TrackCompletion bool   `json:"track_completion"`
}

type LTIConfig struct {
	ToolURL           string            `json:"tool_url" validate:"required,url"`
	ConsumerKey       string            `json:"consumer_key"`
	SharedSecret      string            `json:"shared_secret"`
	CustomParams      map[string]string `json:"custom_params"`
	LaunchInNewWindow bool              `json:"launch_in_new_window"`
}

type QuizConfig struct {
	TimeLimitMinutes int  `json:"time_limit_minutes" validate:"gte=0"`
	PassingScore     int  `json:"passing_score" validate:"gte=0,lte=100"`
	MaxAttempts      int  `json:"max_attempts" validate:"gte=0"`
	QuestionCount    int  `json:"question_count" validate:"gte=0"`
	ShuffleQuestions bool `json:"shuffle_questions"`
	ShowResults      bool `json:"show_results"`
}

// ContentItem is a learning resource of a topic. Only the config payload matching its type may be set.
type ContentItem struct {
	ID             string       `json:"id"`
	CourseID       string       `json:"course_id"`
	UnitID         string       `json:"unit_id"`
	TopicID        string       `json:"topic_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Type           string       `json:"type"`
	URL            string       `json:"url"`
	Duration       string       `json:"duration"`
	FileSize       int64        `json:"file_size"`
	IsDownloadable bool         `json:"is_downloadable"`
	Order          int          `json:"order"`
	IsPublished    bool         `json:"is_published"`
	ScormConfig    *ScormConfig `json:"scorm_config,omitempty"`
	LTIConfig      *LTIConfig   `json:"lti_config,omitempty"`
	QuizConfig     *QuizConfig  `json:"quiz_config,omitempty"`
	Audit
}

func (ci ContentItem) Fields() ContentFields {
	return ContentFields{
		Title:          ci.Title,
		Description:    ci.Description,
		Type:           ci.Type,
		URL:            ci.URL,
		Duration:       ci.Duration,
		FileSize:       ci.FileSize,
		IsDownloadable: ci.IsDownloadable,
		Order:          ci.Order,
		IsPublished:    ci.IsPublished,
		ScormConfig:    ci.ScormConfig,
		LTIConfig:      ci.LTIConfig,
		QuizConfig:     ci.QuizConfig,
	}
}

type ContentFields struct {
	Title          string       `json:"title" validate:"required,notblank"`
	Description    string       `json:"description"`
	Type           string       `json:"type" validate:"required"`
	URL            string       `json:"url" validate:"omitempty,url"`
	Duration       string       `json:"duration"`
	FileSize       int64        `json:"file_size" validate:"gte=0"`
	IsDownloadable bool         `json:"is_downloadable"`
	Order          int          `json:"order" validate:"gte=0"`
	IsPublished    bool         `json:"is_published"`
	ScormConfig    *ScormConfig `json:"scorm_config,omitempty"`
	LTIConfig      *LTIConfig   `json:"lti_config,omitempty"`
	QuizConfig     *QuizConfig  `json:"quiz_config,omitempty"`
}

type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Grade      string    `json:"grade"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"`  // UTC
}

// IsCurrent reports whether the enrollment still grants access to the course.
func (e Enrollment) IsCurrent() bool {
	return e.Status != EnrollmentWithdrawn
}

type EnrollmentFields struct {
	Status   string `json:"status" validate:"required,oneof=pending enrolled completed withdrawn"`
	Progress int    `json:"progress" validate:"gte=0,lte=100"`
	Grade    string `json:"grade" validate:"max=8"`
}

func (e Enrollment) Fields() EnrollmentFields {
	return EnrollmentFields{Status: e.Status, Progress: e.Progress, Grade: e.Grade}
}

// QueryFilter narrows down courses. All set fields must match, on top of the viewer's visibility.
// Search does a case-insensitive match on one of Title, Code or Instructor.
type QueryFilter struct {
	Search     string `query:"search"`
	Category   string `query:"category"`
	Status     string `query:"status"`
	Department string `query:"department"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
	qf.Status = core.CleanString(qf.Status)
	qf.Department = core.CleanString(qf.Department)
}

func (qf QueryFilter) Match(c Course) bool {
	return core.ContainsFold(qf.Search, c.Title, c.Code, c.Instructor) &&
		core.MatchFilter(qf.Category, c.Category) &&
		core.MatchFilter(qf.Status, c.Status) &&
		core.MatchFilter(qf.Department, c.Department)
}

type EnrollmentFilter struct {
	CourseID  string `query:"course"`
	StudentID string `query:"student"`
	Status    string `query:"status"`
}

func (ef EnrollmentFilter) Match(e Enrollment) bool {
	return (ef.CourseID == "" || ef.CourseID == e.CourseID) &&
		(ef.StudentID == "" || ef.StudentID == e.StudentID) &&
		core.MatchFilter(ef.Status, e.Status)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
