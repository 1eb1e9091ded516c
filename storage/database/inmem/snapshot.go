package inmemdb

import (
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
	"github.com/trezcool/masomo-console/core/user"
)

// UserRecord is a user along with its password hash, which is never part of the user's JSON.
type UserRecord struct {
	user.User
	PasswordHash []byte `json:"password_hash"`
}

// Snapshot is a serialisable copy of every table, in insertion order.
type Snapshot struct {
	Users        []UserRecord               `json:"users"`
	Invigilators []invigilation.Invigilator `json:"invigilators"`
	Duties       []invigilation.ExamDuty    `json:"duties"`
	Courses      []course.Course            `json:"courses"`
	Units        []course.Unit              `json:"units"`
	Topics       []course.Topic             `json:"topics"`
	Contents     []course.ContentItem       `json:"contents"`
	Enrollments  []course.Enrollment        `json:"enrollments"`
	Programs     []program.Program          `json:"programs"`
	// Sequences holds the last number of every id sequence, by prefix.
	Sequences map[string]int `json:"sequences"`
}

func newUserRecord(usr user.User) UserRecord {
	rec := UserRecord{User: usr, PasswordHash: usr.PasswordHash}
	rec.User.PasswordHash = nil
	return rec
}

func (db *DB) Snapshot() Snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s := Snapshot{
		Invigilators: db.invigilators.filter(nil),
		Duties:       db.duties.filter(nil),
		Courses:      db.courses.filter(nil),
		Units:        db.units.filter(nil),
		Topics:       db.topics.filter(nil),
		Contents:     db.contents.filter(nil),
		Enrollments:  db.enrollments.filter(nil),
		Programs:     db.programs.filter(nil),
		Sequences:    make(map[string]int, len(db.seqs)),
	}
	for _, usr := range db.users.filter(nil) {
		s.Users = append(s.Users, newUserRecord(usr))
	}
	for prefix, seq := range db.seqs {
		s.Sequences[prefix] = seq.Last()
	}
	return s
}

// Restore replaces the content of every table with the snapshot.
// Sequences resume after the highest of their saved value and the restored ids.
func (db *DB) Restore(s Snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.reset()
	for prefix, last := range s.Sequences {
		if seq, ok := db.seqs[prefix]; ok {
			seq.Reset(last)
		}
	}
	for _, rec := range s.Users {
		usr := rec.User
		usr.PasswordHash = rec.PasswordHash
		db.users.put(usr.ID, usr)
		db.seqs[PrefixUser].Observe(usr.ID)
	}
	for _, inv := range s.Invigilators {
		db.invigilators.put(inv.ID, inv)
		db.seqs[PrefixInvigilator].Observe(inv.ID)
	}
	for _, d := range s.Duties {
		db.duties.put(d.ID, d)
		db.seqs[PrefixDuty].Observe(d.ID)
	}
	for _, c := range s.Courses {
		db.courses.put(c.ID, c)
		db.seqs[PrefixCourse].Observe(c.ID)
	}
	for _, u := range s.Units {
		db.units.put(u.ID, u)
		db.seqs[PrefixUnit].Observe(u.ID)
	}
	for _, t := range s.Topics {
		db.topics.put(t.ID, t)
		db.seqs[PrefixTopic].Observe(t.ID)
	}
	for _, ci := range s.Contents {
		db.contents.put(ci.ID, ci)
		db.seqs[PrefixContent].Observe(ci.ID)
	}
	for _, e := range s.Enrollments {
		db.enrollments.put(e.ID, e)
	}
	for _, prg := range s.Programs {
		db.programs.put(prg.ID, prg)
		db.seqs[PrefixProgram].Observe(prg.ID)
	}
}
