package migration

import (
	"time"

	"github.com/ds-wizard/dsw2to3/pkg/models"
)

// Row is the relational form of one accepted legacy record, ready for the
// target writer.
type Row struct {
	Group    Group
	Table    string
	Columns  []string
	Values   []interface{}
	LegacyID string
	TargetID string
}

// ReferenceIndex maps legacy identifiers to committed target identifiers,
// per group. It is scoped to one run and grows as rows are buffered for
// writing, so a group can only resolve references into groups that were
// processed before it (or into its own already-buffered records).
type ReferenceIndex struct {
	byGroup map[Group]map[string]string
}

func NewReferenceIndex() *ReferenceIndex {
	return &ReferenceIndex{byGroup: map[Group]map[string]string{}}
}

func (idx *ReferenceIndex) Put(group Group, legacyID, targetID string) {
	m, ok := idx.byGroup[group]
	if !ok {
		m = map[string]string{}
		idx.byGroup[group] = m
	}
	m[legacyID] = targetID
}

func (idx *ReferenceIndex) Resolve(group Group, legacyID string) (string, bool) {
	target, ok := idx.byGroup[group][legacyID]
	return target, ok
}

func (idx *ReferenceIndex) Size(group Group) int {
	return len(idx.byGroup[group])
}

// TransformFunc turns one accepted legacy document into its target row.
// Pure: all inputs are explicit, no I/O.
type TransformFunc func(doc models.LegacyDocument, idx *ReferenceIndex, now time.Time) (Row, error)

// resolve rewrites one required legacy reference through the index.
func resolve(idx *ReferenceIndex, group Group, recordID, field string, target Group, legacyRef string) (string, error) {
	resolved, ok := idx.Resolve(target, legacyRef)
	if !ok {
		return "", &UnresolvedReferenceError{
			Group:     group,
			RecordID:  recordID,
			Field:     field,
			Target:    target,
			Reference: legacyRef,
		}
	}
	return resolved, nil
}

// resolveOptional rewrites a nullable reference; nil stays nil.
func resolveOptional(idx *ReferenceIndex, group Group, recordID, field string, target Group, legacyRef interface{}) (interface{}, error) {
	if legacyRef == nil {
		return nil, nil
	}
	ref, ok := legacyRef.(string)
	if !ok {
		return nil, nil
	}
	resolved, err := resolve(idx, group, recordID, field, target, ref)
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func transformOrganization(doc models.LegacyDocument, _ *ReferenceIndex, now time.Time) (Row, error) {
	org, err := models.OrganizationFromDocument(doc, now)
	if err != nil {
		return Row{}, err
	}
	return Row{
		Group:    GroupOrganization,
		Table:    models.OrganizationTable,
		Columns:  org.Columns(),
		Values:   org.Values(),
		LegacyID: org.GetID(),
		TargetID: org.GetID(),
	}, nil
}

func transformUser(doc models.LegacyDocument, _ *ReferenceIndex, now time.Time) (Row, error) {
	user, err := models.UserFromDocument(doc, now)
	if err != nil {
		return Row{}, err
	}
	return Row{
		Group:    GroupUser,
		Table:    models.UserTable,
		Columns:  user.Columns(),
		Values:   user.Values(),
		LegacyID: user.GetID(),
		TargetID: user.GetID(),
	}, nil
}

func transformPackage(doc models.LegacyDocument, idx *ReferenceIndex, now time.Time) (Row, error) {
	pkg, err := models.PackageFromDocument(doc, now)
	if err != nil {
		return Row{}, err
	}
	if pkg.PreviousPackageID, err = resolveOptional(idx, GroupPackage, pkg.ID, "previousPackageId", GroupPackage, pkg.PreviousPackageID); err != nil {
		return Row{}, err
	}
	if pkg.ForkOfPackageID, err = resolveOptional(idx, GroupPackage, pkg.ID, "forkOfPackageId", GroupPackage, pkg.ForkOfPackageID); err != nil {
		return Row{}, err
	}
	if pkg.MergeCheckpointPackageID, err = resolveOptional(idx, GroupPackage, pkg.ID, "mergeCheckpointPackageId", GroupPackage, pkg.MergeCheckpointPackageID); err != nil {
		return Row{}, err
	}
	return Row{
		Group:    GroupPackage,
		Table:    models.PackageTable,
		Columns:  pkg.Columns(),
		Values:   pkg.Values(),
		LegacyID: pkg.ID,
		TargetID: pkg.ID,
	}, nil
}

func transformTemplate(doc models.LegacyDocument, idx *ReferenceIndex, now time.Time) (Row, error) {
	tpl, err := models.TemplateFromDocument(doc, now)
	if err != nil {
		return Row{}, err
	}
	if tpl.RecommendedPackageID, err = resolveOptional(idx, GroupTemplate, tpl.ID, "recommendedPackageId", GroupPackage, tpl.RecommendedPackageID); err != nil {
		return Row{}, err
	}
	return Row{
		Group:    GroupTemplate,
		Table:    models.TemplateTable,
		Columns:  tpl.Columns(),
		Values:   tpl.Values(),
		LegacyID: tpl.ID,
		TargetID: tpl.ID,
	}, nil
}

func transformTemplateFile(doc models.LegacyDocument, idx *ReferenceIndex, now time.Time) (Row, error) {
	file, err := models.TemplateFileFromDocument(doc, now)
	if err != nil {
		return Row{}, err
	}
	legacyID := models.Field(doc, "uuid")
	if legacyID == "" {
		legacyID = file.UUID
	}
	if file.TemplateID, err = resolve(idx, GroupTemplateFile, legacyID, "templateId", GroupTemplate, file.TemplateID); err != nil {
		return Row{}, err
	}
	return Row{
		Group:    GroupTemplateFile,
		Table:    models.TemplateFileTable,
		Columns:  file.Columns(),
		Values:   file.Values(),
		LegacyID: legacyID,
		TargetID: file.UUID,
	}, nil
}

func transformTemplateAsset(doc models.LegacyDocument, idx *ReferenceIndex, now time.Time) (Row, error) {
	asset, err := models.TemplateAssetFromDocument(doc, now)
	if err != nil {
		return Row{}, err
	}
	if asset.TemplateID, err = resolve(idx, GroupTemplateAsset, asset.UUID, "templateId", GroupTemplate, asset.TemplateID); err != nil {
		return Row{}, err
	}
	return Row{
		Group:    GroupTemplateAsset,
		Table:    models.TemplateAssetTable,
		Columns:  asset.Columns(),
		Values:   asset.Values(),
		LegacyID: asset.UUID,
		TargetID: asset.UUID,
	}, nil
}

func transformQuestionnaire(doc models.LegacyDocument, idx *ReferenceIndex, now time.Time) (Row, error) {
	qtn, err := models.QuestionnaireFromDocument(doc, now)
	if err != nil {
		return Row{}, err
	}
	if qtn.PackageID, err = resolve(idx, GroupQuestionnaire, qtn.UUID, "packageId", GroupPackage, qtn.PackageID); err != nil {
		return Row{}, err
	}
	if qtn.TemplateID, err = resolveOptional(idx, GroupQuestionnaire, qtn.UUID, "templateId", GroupTemplate, qtn.TemplateID); err != nil {
		return Row{}, err
	}
	if qtn.CreatorUUID, err = resolveOptional(idx, GroupQuestionnaire, qtn.UUID, "creatorUuid", GroupUser, qtn.CreatorUUID); err != nil {
		return Row{}, err
	}
	return Row{
		Group:    GroupQuestionnaire,
		Table:    models.QuestionnaireTable,
		Columns:  qtn.Columns(),
		Values:   qtn.Values(),
		LegacyID: qtn.UUID,
		TargetID: qtn.UUID,
	}, nil
}

func transformDocument(doc models.LegacyDocument, idx *ReferenceIndex, now time.Time) (Row, error) {
	dmp, err := models.DocumentFromDocument(doc, now)
	if err != nil {
		return Row{}, err
	}
	if dmp.QuestionnaireUUID, err = resolve(idx, GroupDocument, dmp.UUID, "questionnaireUuid", GroupQuestionnaire, dmp.QuestionnaireUUID); err != nil {
		return Row{}, err
	}
	if dmp.TemplateID, err = resolve(idx, GroupDocument, dmp.UUID, "templateId", GroupTemplate, dmp.TemplateID); err != nil {
		return Row{}, err
	}
	if dmp.CreatorUUID, err = resolveOptional(idx, GroupDocument, dmp.UUID, "creatorUuid", GroupUser, dmp.CreatorUUID); err != nil {
		return Row{}, err
	}
	return Row{
		Group:    GroupDocument,
		Table:    models.DocumentTable,
		Columns:  dmp.Columns(),
		Values:   dmp.Values(),
		LegacyID: dmp.UUID,
		TargetID: dmp.UUID,
	}, nil
}
