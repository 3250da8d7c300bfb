package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ds-wizard/dsw2to3/pkg/models"
)

func mustGroup(t *testing.T, name Group) GroupSpec {
	t.Helper()
	spec, ok := GroupByName(name)
	require.True(t, ok)
	return spec
}

func TestCheckGroupAbortsOnFirstViolationByDefault(t *testing.T) {
	checker := NewChecker(false, testLogger())
	spec := mustGroup(t, GroupOrganization)

	_, _, err := checker.CheckGroup(spec, []models.LegacyDocument{
		{"organizationId": "org1", "name": "ACME"},
		{"organizationId": "org2"},
	})

	var violation *IntegrityViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "org2", violation.RecordID)
	assert.Contains(t, violation.Reason, "name")
}

func TestCheckGroupFirstSeenWinsOnDuplicateIdentifier(t *testing.T) {
	checker := NewChecker(true, testLogger())
	spec := mustGroup(t, GroupOrganization)

	accepted, rejections, err := checker.CheckGroup(spec, []models.LegacyDocument{
		{"organizationId": "org1", "name": "First"},
		{"organizationId": "org1", "name": "Second"},
	})

	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "First", models.Field(accepted[0], "name"))
	require.Len(t, rejections, 1)
	assert.Equal(t, "duplicate identifier", rejections[0].Reason)
}

func TestCheckGroupFirstSeenWinsOnDuplicateEmail(t *testing.T) {
	checker := NewChecker(true, testLogger())
	spec := mustGroup(t, GroupUser)

	accepted, rejections, err := checker.CheckGroup(spec, []models.LegacyDocument{
		{"uuid": "u1", "email": "same@example.com", "firstName": "A", "lastName": "A", "role": "admin"},
		{"uuid": "u2", "email": "same@example.com", "firstName": "B", "lastName": "B", "role": "admin"},
	})

	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "u1", models.Field(accepted[0], "uuid"))
	require.Len(t, rejections, 1)
	assert.Equal(t, "u2", rejections[0].RecordID)
	assert.Contains(t, rejections[0].Reason, "email")
}

func TestCheckGroupRejectsDanglingReference(t *testing.T) {
	checker := NewChecker(true, testLogger())

	_, _, err := checker.CheckGroup(mustGroup(t, GroupTemplate), []models.LegacyDocument{
		{"id": "t1", "templateId": "tpl", "version": "1.0.0", "name": "T"},
	})
	require.NoError(t, err)

	accepted, rejections, err := checker.CheckGroup(mustGroup(t, GroupTemplateAsset), []models.LegacyDocument{
		{"uuid": "a1", "fileName": "ok.png", "templateId": "t1"},
		{"uuid": "a2", "fileName": "orphan.png", "templateId": "gone"},
	})

	require.NoError(t, err)
	require.Len(t, accepted, 1)
	require.Len(t, rejections, 1)
	assert.Equal(t, "a2", rejections[0].RecordID)
	assert.Contains(t, rejections[0].Reason, `missing template "gone"`)
}

func TestCheckGroupRejectedRecordIsNotAReferenceTarget(t *testing.T) {
	checker := NewChecker(true, testLogger())

	// the template itself is invalid and gets rejected
	_, rejections, err := checker.CheckGroup(mustGroup(t, GroupTemplate), []models.LegacyDocument{
		{"id": "t1", "templateId": "tpl", "version": "1.0.0"}, // name missing
	})
	require.NoError(t, err)
	require.Len(t, rejections, 1)

	// so anything pointing at it cascades out too
	accepted, rejections, err := checker.CheckGroup(mustGroup(t, GroupTemplateFile), []models.LegacyDocument{
		{"uuid": "f1", "fileName": "x.j2", "templateId": "t1"},
	})
	require.NoError(t, err)
	assert.Empty(t, accepted)
	require.Len(t, rejections, 1)
	assert.Contains(t, rejections[0].Reason, `missing template "t1"`)
}

func TestCheckGroupCascadesSelfReferencesToFixpoint(t *testing.T) {
	checker := NewChecker(true, testLogger())
	spec := mustGroup(t, GroupPackage)

	accepted, rejections, err := checker.CheckGroup(spec, []models.LegacyDocument{
		{"id": "p1", "kmId": "km", "version": "1.0.0", "name": "root"},
		{"id": "p2", "kmId": "km", "version": "2.0.0", "name": "dangling", "previousPackageId": "missing"},
		{"id": "p3", "kmId": "km", "version": "3.0.0", "name": "chained", "previousPackageId": "p2"},
		{"id": "p4", "kmId": "km", "version": "4.0.0", "name": "chained deeper", "forkOfPackageId": "p3"},
	})

	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "p1", models.Field(accepted[0], "id"))
	assert.Len(t, rejections, 3)
	assert.False(t, checker.Accepted(GroupPackage, "p4"))
	assert.True(t, checker.Accepted(GroupPackage, "p1"))
}

func TestCheckGroupOptionalReferenceMayBeAbsent(t *testing.T) {
	checker := NewChecker(false, testLogger())
	spec := mustGroup(t, GroupPackage)

	accepted, rejections, err := checker.CheckGroup(spec, []models.LegacyDocument{
		{"id": "p1", "kmId": "km", "version": "1.0.0", "name": "standalone"},
	})

	require.NoError(t, err)
	assert.Len(t, accepted, 1)
	assert.Empty(t, rejections)
}

func TestCheckGroupMintsTemplateFileUUIDWhenAbsent(t *testing.T) {
	checker := NewChecker(false, testLogger())

	_, _, err := checker.CheckGroup(mustGroup(t, GroupTemplate), []models.LegacyDocument{
		{"id": "t1", "templateId": "tpl", "version": "1.0.0", "name": "T"},
	})
	require.NoError(t, err)

	// files of old templates carry no uuid at all
	accepted, rejections, err := checker.CheckGroup(mustGroup(t, GroupTemplateFile), []models.LegacyDocument{
		{"fileName": "default.html.j2", "content": "<html>", "templateId": "t1"},
		{"fileName": "style.css", "content": "body {}", "templateId": "t1"},
	})

	require.NoError(t, err)
	require.Len(t, accepted, 2)
	assert.Empty(t, rejections)

	first := models.Field(accepted[0], "uuid")
	second := models.Field(accepted[1], "uuid")
	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
	assert.True(t, checker.Accepted(GroupTemplateFile, first))

	// the transformer picks up the minted uuid instead of inventing another
	idx := NewReferenceIndex()
	idx.Put(GroupTemplate, "t1", "t1")
	row, err := transformTemplateFile(accepted[0], idx, transformNow)
	require.NoError(t, err)
	assert.Equal(t, first, row.LegacyID)
	assert.Equal(t, first, row.TargetID)
}

func TestCheckGroupMissingIdentifier(t *testing.T) {
	checker := NewChecker(true, testLogger())
	spec := mustGroup(t, GroupUser)

	accepted, rejections, err := checker.CheckGroup(spec, []models.LegacyDocument{
		{"email": "no-id@example.com", "firstName": "A", "lastName": "B", "role": "admin"},
	})

	require.NoError(t, err)
	assert.Empty(t, accepted)
	require.Len(t, rejections, 1)
	assert.Contains(t, rejections[0].Reason, `missing required field "uuid"`)
}
