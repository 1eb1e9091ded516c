// Package boltsnap persists snapshots of the in-memory database to a bbolt file between runs.
package boltsnap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
)

var (
	bucketMeta         = []byte("meta")
	bucketUsers        = []byte("users")
	bucketInvigilators = []byte("invigilators")
	bucketDuties       = []byte("duties")
	bucketCourses      = []byte("courses")
	bucketUnits        = []byte("units")
	bucketTopics       = []byte("topics")
	bucketContents     = []byte("contents")
	bucketEnrollments  = []byte("enrollments")
	bucketPrograms     = []byte("programs")

	keySequences = []byte("sequences")
	keySavedAt   = []byte("saved_at")
)

type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the snapshot file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating snapshot directory")
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening snapshot file")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot in a single transaction.
func (s *Store) Save(snap inmemdb.Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := putAll(tx, bucketUsers, snap.Users); err != nil {
			return err
		}
		if err := putAll(tx, bucketInvigilators, snap.Invigilators); err != nil {
			return err
		}
		if err := putAll(tx, bucketDuties, snap.Duties); err != nil {
			return err
		}
		if err := putAll(tx, bucketCourses, snap.Courses); err != nil {
			return err
		}
		if err := putAll(tx, bucketUnits, snap.Units); err != nil {
			return err
		}
		if err := putAll(tx, bucketTopics, snap.Topics); err != nil {
			return err
		}
		if err := putAll(tx, bucketContents, snap.Contents); err != nil {
			return err
		}
		if err := putAll(tx, bucketEnrollments, snap.Enrollments); err != nil {
			return err
		}
		if err := putAll(tx, bucketPrograms, snap.Programs); err != nil {
			return err
		}

		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		seqs, err := json.Marshal(snap.Sequences)
		if err != nil {
			return err
		}
		if err = meta.Put(keySequences, seqs); err != nil {
			return err
		}
		return meta.Put(keySavedAt, []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

// Load reads the stored snapshot. ok is false when nothing was ever saved.
func (s *Store) Load() (snap inmemdb.Snapshot, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return nil
		}
		ok = true
		if v := meta.Get(keySequences); v != nil {
			if err := json.Unmarshal(v, &snap.Sequences); err != nil {
				return errors.Wrap(err, "decoding sequences")
			}
		}
		if snap.Users, err = listAll[inmemdb.UserRecord](tx, bucketUsers); err != nil {
			return err
		}
		if snap.Invigilators, err = listAll[invigilation.Invigilator](tx, bucketInvigilators); err != nil {
			return err
		}
		if snap.Duties, err = listAll[invigilation.ExamDuty](tx, bucketDuties); err != nil {
			return err
		}
		if snap.Courses, err = listAll[course.Course](tx, bucketCourses); err != nil {
			return err
		}
		if snap.Units, err = listAll[course.Unit](tx, bucketUnits); err != nil {
			return err
		}
		if snap.Topics, err = listAll[course.Topic](tx, bucketTopics); err != nil {
			return err
		}
		if snap.Contents, err = listAll[course.ContentItem](tx, bucketContents); err != nil {
			return err
		}
		if snap.Enrollments, err = listAll[course.Enrollment](tx, bucketEnrollments); err != nil {
			return err
		}
		snap.Programs, err = listAll[program.Program](tx, bucketPrograms)
		return err
	})
	return snap, ok, err
}

// putAll replaces the content of bucket with rows, keyed by their zero-padded position.
func putAll[T any](tx *bbolt.Tx, bucket []byte, rows []T) error {
	if tx.Bucket(bucket) != nil {
		if err := tx.DeleteBucket(bucket); err != nil {
			return errors.Wrapf(err, "clearing bucket %s", bucket)
		}
	}
	b, err := tx.CreateBucket(bucket)
	if err != nil {
		return errors.Wrapf(err, "creating bucket %s", bucket)
	}
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return errors.Wrapf(err, "encoding %s row", bucket)
		}
		if err = b.Put([]byte(fmt.Sprintf("%08d", i)), data); err != nil {
			return err
		}
	}
	return nil
}

// listAll returns the rows of bucket in key order.
func listAll[T any](tx *bbolt.Tx, bucket []byte) ([]T, error) {
	b := tx.Bucket(bucket)
	if b == nil {
		return nil, nil
	}
	var out []T
	err := b.ForEach(func(k, v []byte) error {
		var row T
		if err := json.Unmarshal(v, &row); err != nil {
			return errors.Wrapf(err, "decoding %s row %s", bucket, k)
		}
		out = append(out, row)
		return nil
	})
	return out, err
}
