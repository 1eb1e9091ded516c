package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
)

// Level names a level of the course hierarchy below the course itself.
type Level string

const (
	LevelUnit    Level = "unit"
	LevelTopic   Level = "topic"
	LevelContent Level = "content"
)

// checkCourse authorizes p to edit the hierarchy of a course it can see.
func (svc *Service) checkCourse(ctx context.Context, p access.Principal, courseID string) (Course, error) {
	if err := access.Authorize(p, access.ActionManageHierarchy); err != nil {
		return Course{}, err
	}
	return svc.getVisible(ctx, p, courseID)
}

func (svc *Service) touchCourse(ctx context.Context, c Course) error {
	c.UpdatedAt = core.NowFunc()
	_, err := svc.repo.UpdateCourse(ctx, c)
	return errors.Wrap(err, "updating course")
}

func (svc *Service) hierarchy(ctx context.Context, courseID string) (Hierarchy, error) {
	h, err := svc.repo.GetHierarchy(ctx, courseID)
	return h, errors.Wrap(err, "getting hierarchy")
}

// Units

func (svc *Service) CreateUnit(ctx context.Context, p access.Principal, courseID string, f UnitFields) (Unit, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	c, err := svc.checkCourse(ctx, p, courseID)
	if err != nil {
		return Unit{}, err
	}
	f.Title = core.CleanString(f.Title)
	if err = svc.validate.Struct(f); err != nil {
		return Unit{}, err
	}
	if f.Order == 0 {
		h, err := svc.hierarchy(ctx, courseID)
		if err != nil {
			return Unit{}, err
		}
		for _, u := range h.Units {
			if u.Order > f.Order {
				f.Order = u.Order
			}
		}
		f.Order++
	}

	u := Unit{CourseID: courseID, Audit: newAudit(p.Name)}
	applyUnitFields(&u, f)
	if u, err = svc.repo.CreateUnit(ctx, u); err != nil {
		return Unit{}, err
	}
	return u, svc.touchCourse(ctx, c)
}

func applyUnitFields(u *Unit, f UnitFields) {
	u.Title = f.Title
	u.Description = f.Description
	u.Order = f.Order
	u.IsPublished = f.IsPublished
}

func (svc *Service) getUnit(ctx context.Context, p access.Principal, id string) (Unit, Course, error) {
	u, err := svc.repo.GetUnit(ctx, id)
	if err != nil {
		return Unit{}, Course{}, err
	}
	c, err := svc.checkCourse(ctx, p, u.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			err = ErrUnitNotFound
		}
		return Unit{}, Course{}, err
	}
	return u, c, nil
}

func (svc *Service) GetUnit(ctx context.Context, p access.Principal, id string) (Unit, error) {
	u, _, err := svc.getUnit(ctx, p, id)
	return u, err
}

func (svc *Service) UpdateUnit(ctx context.Context, p access.Principal, id string, f UnitFields) (Unit, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	u, c, err := svc.getUnit(ctx, p, id)
	if err != nil {
		return Unit{}, err
	}
	f.Title = core.CleanString(f.Title)
	if err = svc.validate.Struct(f); err != nil {
		return Unit{}, err
	}
	applyUnitFields(&u, f)
	u.UpdatedAt = core.NowFunc()
	if u, err = svc.repo.UpdateUnit(ctx, u); err != nil {
		return Unit{}, err
	}
	return u, svc.touchCourse(ctx, c)
}

// DeleteUnit removes a unit with its topics and their content items.
func (svc *Service) DeleteUnit(ctx context.Context, p access.Principal, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, c, err := svc.getUnit(ctx, p, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteUnit(ctx, id); err != nil {
		return err
	}
	return svc.touchCourse(ctx, c)
}

// Topics

func (svc *Service) CreateTopic(ctx context.Context, p access.Principal, unitID string, f TopicFields) (Topic, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	u, c, err := svc.getUnit(ctx, p, unitID)
	if err != nil {
		return Topic{}, err
	}
	f.Title = core.CleanString(f.Title)
	if err = svc.validate.Struct(f); err != nil {
		return Topic{}, err
	}
	if f.Order == 0 {
		h, err := svc.hierarchy(ctx, u.CourseID)
		if err != nil {
			return Topic{}, err
		}
		for _, t := range h.Topics {
			if t.UnitID == unitID && t.Order > f.Order {
				f.Order = t.Order
			}
		}
		f.Order++
	}

	t := Topic{CourseID: u.CourseID, UnitID: unitID, Audit: newAudit(p.Name)}
	applyTopicFields(&t, f)
	if t, err = svc.repo.CreateTopic(ctx, t); err != nil {
		return Topic{}, err
	}
	return t, svc.touchCourse(ctx, c)
}

func applyTopicFields(t *Topic, f TopicFields) {
	t.Title = f.Title
	t.Description = f.Description
	t.Order = f.Order
	t.EstimatedMinutes = f.EstimatedMinutes
	t.IsPublished = f.IsPublished
}

func (svc *Service) getTopic(ctx context.Context, p access.Principal, id string) (Topic, Course, error) {
	t, err := svc.repo.GetTopic(ctx, id)
	if err != nil {
		return Topic{}, Course{}, err
	}
	c, err := svc.checkCourse(ctx, p, t.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			err = ErrTopicNotFound
		}
		return Topic{}, Course{}, err
	}
	return t, c, nil
}

func (svc *Service) GetTopic(ctx context.Context, p access.Principal, id string) (Topic, error) {
	t, _, err := svc.getTopic(ctx, p, id)
	return t, err
}

func (svc *Service) UpdateTopic(ctx context.Context, p access.Principal, id string, f TopicFields) (Topic, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	t, c, err := svc.getTopic(ctx, p, id)
	if err != nil {
		return Topic{}, err
	}
	f.Title = core.CleanString(f.Title)
	if err = svc.validate.Struct(f); err != nil {
		return Topic{}, err
	}
	applyTopicFields(&t, f)
	t.UpdatedAt = core.NowFunc()
	if t, err = svc.repo.UpdateTopic(ctx, t); err != nil {
		return Topic{}, err
	}
	return t, svc.touchCourse(ctx, c)
}

// DeleteTopic removes a topic with its content items.
func (svc *Service) DeleteTopic(ctx context.Context, p access.Principal, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, c, err := svc.getTopic(ctx, p, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteTopic(ctx, id); err != nil {
		return err
	}
	return svc.touchCourse(ctx, c)
}

// Content items

func (svc *Service) validateContent(f *ContentFields) error {
	f.Title = core.CleanString(f.Title)
	f.Type = core.CleanString(f.Type)
	f.URL = core.CleanString(f.URL)
	if err := svc.validate.Struct(f); err != nil {
		return err
	}
	if !contains(Types, f.Type) {
		return core.NewFieldError("type", "invalid content type")
	}
	if contains(urlTypes, f.Type) && f.URL == "" {
		return core.NewFieldError("url", "this field is required for "+f.Type+" content")
	}
	switch {
	case f.ScormConfig != nil && f.Type != TypeScorm:
		return core.NewFieldError("scorm_config", "only allowed for scorm content")
	case f.LTIConfig != nil && f.Type != TypeLTI:
		return core.NewFieldError("lti_config", "only allowed for lti content")
	case f.QuizConfig != nil && f.Type != TypeQuiz:
		return core.NewFieldError("quiz_config", "only allowed for quiz content")
	}
	return nil
}

func applyContentFields(ci *ContentItem, f ContentFields) {
	ci.Title = f.Title
	ci.Description = f.Description
	ci.Type = f.Type
	ci.URL = f.URL
	ci.Duration = f.Duration
	ci.FileSize = f.FileSize
	ci.IsDownloadable = f.IsDownloadable
	ci.Order = f.Order
	ci.IsPublished = f.IsPublished
	ci.ScormConfig = f.ScormConfig
	ci.LTIConfig = f.LTIConfig
	ci.QuizConfig = f.QuizConfig
}

func (svc *Service) CreateContent(ctx context.Context, p access.Principal, topicID string, f ContentFields) (ContentItem, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	t, c, err := svc.getTopic(ctx, p, topicID)
	if err != nil {
		return ContentItem{}, err
	}
	if err = svc.validateContent(&f); err != nil {
		return ContentItem{}, err
	}
	if f.Order == 0 {
		h, err := svc.hierarchy(ctx, t.CourseID)
		if err != nil {
			return ContentItem{}, err
		}
		for _, ci := range h.Contents {
			if ci.TopicID == topicID && ci.Order > f.Order {
				f.Order = ci.Order
			}
		}
		f.Order++
	}

	ci := ContentItem{CourseID: t.CourseID, UnitID: t.UnitID, TopicID: topicID, Audit: newAudit(p.Name)}
	applyContentFields(&ci, f)
	if ci, err = svc.repo.CreateContent(ctx, ci); err != nil {
		return ContentItem{}, err
	}
	return ci, svc.touchCourse(ctx, c)
}

func (svc *Service) getContent(ctx context.Context, p access.Principal, id string) (ContentItem, Course, error) {
	ci, err := svc.repo.GetContent(ctx, id)
	if err != nil {
		return ContentItem{}, Course{}, err
	}
	c, err := svc.checkCourse(ctx, p, ci.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			err = ErrContentNotFound
		}
		return ContentItem{}, Course{}, err
	}
	return ci, c, nil
}

func (svc *Service) GetContent(ctx context.Context, p access.Principal, id string) (ContentItem, error) {
	ci, _, err := svc.getContent(ctx, p, id)
	return ci, err
}

func (svc *Service) UpdateContent(ctx context.Context, p access.Principal, id string, f ContentFields) (ContentItem, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	ci, c, err := svc.getContent(ctx, p, id)
	if err != nil {
		return ContentItem{}, err
	}
	if err = svc.validateContent(&f); err != nil {
		return ContentItem{}, err
	}
	applyContentFields(&ci, f)
	ci.UpdatedAt = core.NowFunc()
	if ci, err = svc.repo.UpdateContent(ctx, ci); err != nil {
		return ContentItem{}, err
	}
	return ci, svc.touchCourse(ctx, c)
}

func (svc *Service) DeleteContent(ctx context.Context, p access.Principal, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, c, err := svc.getContent(ctx, p, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteContent(ctx, id); err != nil {
		return err
	}
	return svc.touchCourse(ctx, c)
}

// SetPublished flips the publish flag of a unit, topic or content item.
func (svc *Service) SetPublished(ctx context.Context, p access.Principal, level Level, id string, published bool) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var (
		c   Course
		err error
	)
	now := core.NowFunc()
	switch level {
	case LevelUnit:
		var u Unit
		if u, c, err = svc.getUnit(ctx, p, id); err != nil {
			return err
		}
		u.IsPublished, u.UpdatedAt = published, now
		_, err = svc.repo.UpdateUnit(ctx, u)
	case LevelTopic:
		var t Topic
		if t, c, err = svc.getTopic(ctx, p, id); err != nil {
			return err
		}
		t.IsPublished, t.UpdatedAt = published, now
		_, err = svc.repo.UpdateTopic(ctx, t)
	case LevelContent:
		var ci ContentItem
		if ci, c, err = svc.getContent(ctx, p, id); err != nil {
			return err
		}
		ci.IsPublished, ci.UpdatedAt = published, now
		_, err = svc.repo.UpdateContent(ctx, ci)
	default:
		return core.NewFieldError("level", "unknown level "+string(level))
	}
	if err != nil {
		return err
	}
	return svc.touchCourse(ctx, c)
}

// Reorder rewrites the order of the children of parentID (a course, unit or topic for the unit, topic and
// content levels) following ids, which must list every child exactly once.
func (svc *Service) Reorder(ctx context.Context, p access.Principal, level Level, parentID string, ids []string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var courseID string
	switch level {
	case LevelUnit:
		courseID = parentID
	case LevelTopic:
		u, err := svc.repo.GetUnit(ctx, parentID)
		if err != nil {
			return err
		}
		courseID = u.CourseID
	case LevelContent:
		t, err := svc.repo.GetTopic(ctx, parentID)
		if err != nil {
			return err
		}
		courseID = t.CourseID
	default:
		return core.NewFieldError("level", "unknown level "+string(level))
	}

	c, err := svc.checkCourse(ctx, p, courseID)
	if err != nil {
		return err
	}
	h, err := svc.hierarchy(ctx, courseID)
	if err != nil {
		return err
	}

	var children []string
	switch level {
	case LevelUnit:
		for _, u := range h.Units {
			children = append(children, u.ID)
		}
	case LevelTopic:
		for _, t := range h.Topics {
			if t.UnitID == parentID {
				children = append(children, t.ID)
			}
		}
	case LevelContent:
		for _, ci := range h.Contents {
			if ci.TopicID == parentID {
				children = append(children, ci.ID)
			}
		}
	}
	if !samePermutation(children, ids) {
		return core.NewFieldError("ids", "must list every child exactly once")
	}

	order := make(map[string]int, len(ids))
	for i, id := range ids {
		order[id] = i + 1
	}
	now := core.NowFunc()
	switch level {
	case LevelUnit:
		for _, u := range h.Units {
			u.Order, u.UpdatedAt = order[u.ID], now
			if _, err = svc.repo.UpdateUnit(ctx, u); err != nil {
				return err
			}
		}
	case LevelTopic:
		for _, t := range h.Topics {
			if t.UnitID != parentID {
				continue
			}
			t.Order, t.UpdatedAt = order[t.ID], now
			if _, err = svc.repo.UpdateTopic(ctx, t); err != nil {
				return err
			}
		}
	case LevelContent:
		for _, ci := range h.Contents {
			if ci.TopicID != parentID {
				continue
			}
			ci.Order, ci.UpdatedAt = order[ci.ID], now
			if _, err = svc.repo.UpdateContent(ctx, ci); err != nil {
				return err
			}
		}
	}
	return svc.touchCourse(ctx, c)
}

func samePermutation(have, want []string) bool {
	if len(have) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(have))
	for _, id := range have {
		seen[id] = true
	}
	for _, id := range want {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}
