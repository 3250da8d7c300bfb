package migration

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ds-wizard/dsw2to3/pkg/models"
)

// Rejection records one legacy record excluded from migration and why.
type Rejection struct {
	Group    Group
	RecordID string
	Reason   string
}

// Checker validates legacy records group by group. It remembers the
// accepted identifiers of every group it has seen, so references of later
// groups are checked against exactly the records that will exist in the
// target; a record rejected earlier is not a valid reference target.
type Checker struct {
	fixIntegrity bool
	accepted     map[Group]map[string]struct{}
	log          logrus.FieldLogger
}

func NewChecker(fixIntegrity bool, log logrus.FieldLogger) *Checker {
	return &Checker{
		fixIntegrity: fixIntegrity,
		accepted:     map[Group]map[string]struct{}{},
		log:          log,
	}
}

// Accepted reports whether the given record of a previously checked group
// survived validation.
func (c *Checker) Accepted(group Group, id string) bool {
	_, ok := c.accepted[group][id]
	return ok
}

// CheckGroup validates all records of one group in input order. In default
// mode the first violation aborts with IntegrityViolationError; with
// fix-integrity every violating record is excluded instead, and the
// exclusion cascades within the group until no accepted record references
// a rejected one.
func (c *Checker) CheckGroup(spec GroupSpec, records []models.LegacyDocument) ([]models.LegacyDocument, []Rejection, error) {
	type entry struct {
		doc      models.LegacyDocument
		id       string
		accepted bool
	}

	entries := make([]entry, 0, len(records))
	var rejections []Rejection

	reject := func(id, reason string) error {
		if !c.fixIntegrity {
			return &IntegrityViolationError{Group: spec.Name, RecordID: id, Reason: reason}
		}
		c.log.WithFields(logrus.Fields{
			"group":  spec.Name,
			"record": id,
			"reason": reason,
		}).Warn("excluding invalid record")
		rejections = append(rejections, Rejection{Group: spec.Name, RecordID: id, Reason: reason})
		return nil
	}

	seenIDs := map[string]struct{}{}
	seenUnique := map[string]map[string]struct{}{}
	for _, field := range spec.UniqueFields {
		seenUnique[field] = map[string]struct{}{}
	}

	idRequired := false
	for _, field := range spec.Required {
		if field == spec.IDField {
			idRequired = true
		}
	}

	// First pass: identity, uniqueness, required fields, and references
	// into previously processed groups.
	for _, doc := range records {
		id := models.Field(doc, spec.IDField)
		if id == "" {
			id = "<missing identifier>"
		}
		e := entry{doc: doc, id: id, accepted: true}

		fail := func(reason string) error {
			e.accepted = false
			entries = append(entries, e)
			return reject(id, reason)
		}

		if !models.HasField(doc, spec.IDField) {
			if idRequired {
				if err := fail(fmt.Sprintf("missing required field %q", spec.IDField)); err != nil {
					return nil, nil, err
				}
				continue
			}
			// old template files predate UUIDs; mint one so duplicate
			// checking and reference tracking still apply
			id = uuid.NewString()
			doc[spec.IDField] = id
			e.id = id
		}
		if _, dup := seenIDs[id]; dup {
			if err := fail("duplicate identifier"); err != nil {
				return nil, nil, err
			}
			continue
		}

		missing := ""
		for _, field := range spec.Required {
			if !models.HasField(doc, field) {
				missing = field
				break
			}
		}
		if missing != "" {
			if err := fail(fmt.Sprintf("missing required field %q", missing)); err != nil {
				return nil, nil, err
			}
			continue
		}

		duplicateField := ""
		for _, field := range spec.UniqueFields {
			value := models.Field(doc, field)
			if _, dup := seenUnique[field][value]; dup {
				duplicateField = field
				break
			}
		}
		if duplicateField != "" {
			if err := fail(fmt.Sprintf("duplicate %s %q", duplicateField, models.Field(doc, duplicateField))); err != nil {
				return nil, nil, err
			}
			continue
		}

		brokenRef := ""
		for _, ref := range spec.References {
			if ref.Target == spec.Name {
				continue // own-group references checked in the cascade below
			}
			if !models.HasField(doc, ref.Field) {
				if ref.Optional {
					continue
				}
				brokenRef = fmt.Sprintf("missing required field %q", ref.Field)
				break
			}
			target := models.Field(doc, ref.Field)
			if !c.Accepted(ref.Target, target) {
				brokenRef = fmt.Sprintf("missing %s %q (field %s)", ref.Target, target, ref.Field)
				break
			}
		}
		if brokenRef != "" {
			if err := fail(brokenRef); err != nil {
				return nil, nil, err
			}
			continue
		}

		seenIDs[id] = struct{}{}
		for _, field := range spec.UniqueFields {
			seenUnique[field][models.Field(doc, field)] = struct{}{}
		}
		entries = append(entries, e)
	}

	// Cascade pass: own-group references are checked against the set of
	// still-accepted records, repeated until a fixpoint. Rejecting one
	// record can invalidate another that pointed at it.
	if spec.SelfReferential() {
		for changed := true; changed; {
			changed = false
			acceptedNow := map[string]struct{}{}
			for _, e := range entries {
				if e.accepted {
					acceptedNow[e.id] = struct{}{}
				}
			}
			for i := range entries {
				e := &entries[i]
				if !e.accepted {
					continue
				}
				for _, ref := range spec.References {
					if ref.Target != spec.Name || !models.HasField(e.doc, ref.Field) {
						continue
					}
					target := models.Field(e.doc, ref.Field)
					if _, ok := acceptedNow[target]; ok {
						continue
					}
					e.accepted = false
					changed = true
					if err := reject(e.id, fmt.Sprintf("missing %s %q (field %s)", spec.Name, target, ref.Field)); err != nil {
						return nil, nil, err
					}
					break
				}
			}
		}
	}

	acceptedDocs := make([]models.LegacyDocument, 0, len(entries))
	acceptedIDs := map[string]struct{}{}
	for _, e := range entries {
		if e.accepted {
			acceptedDocs = append(acceptedDocs, e.doc)
			acceptedIDs[e.id] = struct{}{}
		}
	}
	c.accepted[spec.Name] = acceptedIDs

	return acceptedDocs, rejections, nil
}
