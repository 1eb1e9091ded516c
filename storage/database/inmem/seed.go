package inmemdb

import (
	"encoding/json"
	"io/fs"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
	"github.com/trezcool/masomo-console/core/user"
	appfs "github.com/trezcool/masomo-console/fs"
)

type seedUser struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Departments []string `json:"departments"`
	Password    string   `json:"password"`
}

// seedFile mirrors Snapshot, with plain text passwords for users.
type seedFile struct {
	Users        []seedUser                 `json:"users"`
	Invigilators []invigilation.Invigilator `json:"invigilators"`
	Duties       []invigilation.ExamDuty    `json:"duties"`
	Courses      []course.Course            `json:"courses"`
	Units        []course.Unit              `json:"units"`
	Topics       []course.Topic             `json:"topics"`
	Contents     []course.ContentItem       `json:"contents"`
	Enrollments  []course.Enrollment        `json:"enrollments"`
	Programs     []program.Program          `json:"programs"`
}

// ParseSeed reads YAML fixtures into a snapshot. Missing timestamps are set to now.
// YAML keys are the JSON names of the fields.
func ParseSeed(data []byte) (Snapshot, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, errors.Wrap(err, "parsing seed yaml")
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "converting seed to json")
	}
	var sf seedFile
	if err = json.Unmarshal(js, &sf); err != nil {
		return Snapshot{}, errors.Wrap(err, "decoding seed")
	}

	now := core.NowFunc()
	s := Snapshot{
		Invigilators: sf.Invigilators,
		Duties:       sf.Duties,
		Courses:      sf.Courses,
		Units:        sf.Units,
		Topics:       sf.Topics,
		Contents:     sf.Contents,
		Enrollments:  sf.Enrollments,
		Programs:     sf.Programs,
	}
	for _, su := range sf.Users {
		usr := user.User{
			ID:          su.ID,
			Name:        su.Name,
			Email:       su.Email,
			Role:        su.Role,
			Departments: su.Departments,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if usr.Departments == nil {
			usr.Departments = []string{}
		}
		if err = usr.SetPassword(su.Password); err != nil {
			return Snapshot{}, errors.Wrap(err, "hashing seed password")
		}
		s.Users = append(s.Users, newUserRecord(usr))
	}
	for i := range s.Invigilators {
		stamp(&s.Invigilators[i].CreatedAt, &s.Invigilators[i].UpdatedAt, now)
	}
	for i := range s.Duties {
		stamp(&s.Duties[i].CreatedAt, &s.Duties[i].UpdatedAt, now)
	}
	for i := range s.Courses {
		stamp(&s.Courses[i].CreatedAt, &s.Courses[i].UpdatedAt, now)
	}
	for i := range s.Units {
		stamp(&s.Units[i].CreatedAt, &s.Units[i].UpdatedAt, now)
	}
	for i := range s.Topics {
		stamp(&s.Topics[i].CreatedAt, &s.Topics[i].UpdatedAt, now)
	}
	for i := range s.Contents {
		stamp(&s.Contents[i].CreatedAt, &s.Contents[i].UpdatedAt, now)
	}
	for i := range s.Enrollments {
		stamp(&s.Enrollments[i].EnrolledAt, &s.Enrollments[i].UpdatedAt, now)
	}
	for i := range s.Programs {
		stamp(&s.Programs[i].CreatedAt, &s.Programs[i].UpdatedAt, now)
	}
	return s, nil
}

// Seed replaces the content of the database with the embedded fixtures.
func Seed(db *DB) error {
	data, err := fs.ReadFile(appfs.FS, appfs.SeedFile)
	if err != nil {
		return errors.Wrap(err, "reading seed file")
	}
	s, err := ParseSeed(data)
	if err != nil {
		return err
	}
	db.Restore(s)
	return nil
}

func stamp(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
