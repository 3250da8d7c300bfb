package models

import (
	"time"

	"github.com/ds-wizard/dsw2to3/pkg/utils"
)

const (
	QuestionnaireTable = "questionnaire"
	DocumentTable      = "document"
)

// Questionnaire is one row of the questionnaire table.
type Questionnaire struct {
	UUID             string
	Name             string
	Visibility       string
	Sharing          string
	PackageID        string
	SelectedTagUUIDs string
	TemplateID       interface{}
	FormatUUID       interface{}
	CreatorUUID      interface{}
	Events           string
	Versions         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func QuestionnaireFromDocument(doc LegacyDocument, now time.Time) (Questionnaire, error) {
	selectedTags, err := utils.ToJSON(doc["selectedTagUuids"], "[]")
	if err != nil {
		return Questionnaire{}, err
	}
	events, err := utils.ToJSON(doc["events"], "[]")
	if err != nil {
		return Questionnaire{}, err
	}
	versions, err := utils.ToJSON(doc["versions"], "[]")
	if err != nil {
		return Questionnaire{}, err
	}
	return Questionnaire{
		UUID:             Field(doc, "uuid"),
		Name:             Field(doc, "name"),
		Visibility:       utils.ToStringOr(doc["visibility"], "PrivateQuestionnaire"),
		Sharing:          utils.ToStringOr(doc["sharing"], "RestrictedQuestionnaire"),
		PackageID:        Field(doc, "packageId"),
		SelectedTagUUIDs: selectedTags,
		TemplateID:       utils.ToNullableString(doc["templateId"]),
		FormatUUID:       utils.ToNullableString(doc["formatUuid"]),
		CreatorUUID:      utils.ToNullableString(doc["creatorUuid"]),
		Events:           events,
		Versions:         versions,
		CreatedAt:        utils.ToTime(doc["createdAt"], now),
		UpdatedAt:        utils.ToTime(doc["updatedAt"], now),
	}, nil
}

func (q Questionnaire) GetID() string { return q.UUID }

func (q Questionnaire) Columns() []string {
	return []string{
		"uuid",
		"name",
		"visibility",
		"sharing",
		"package_id",
		"selected_tag_uuids",
		"template_id",
		"format_uuid",
		"creator_uuid",
		"events",
		"versions",
		"created_at",
		"updated_at",
	}
}

func (q Questionnaire) Values() []interface{} {
	return []interface{}{
		q.UUID,
		q.Name,
		q.Visibility,
		q.Sharing,
		q.PackageID,
		q.SelectedTagUUIDs,
		q.TemplateID,
		q.FormatUUID,
		q.CreatorUUID,
		q.Events,
		q.Versions,
		q.CreatedAt,
		q.UpdatedAt,
	}
}

// Document is one row of the document table. The rendered document body
// itself is a blob and moves through the blob migrator under
// documents/<uuid>.
type Document struct {
	UUID                   string
	Name                   string
	State                  string
	Durability             string
	QuestionnaireUUID      string
	QuestionnaireEventUUID interface{}
	TemplateID             string
	FormatUUID             interface{}
	ContentType            string
	CreatorUUID            interface{}
	RetrievedAt            interface{}
	FinishedAt             interface{}
	CreatedAt              time.Time
}

func DocumentFromDocument(doc LegacyDocument, now time.Time) (Document, error) {
	return Document{
		UUID:                   Field(doc, "uuid"),
		Name:                   Field(doc, "name"),
		State:                  utils.ToStringOr(doc["state"], "DoneDocumentState"),
		Durability:             utils.ToStringOr(doc["durability"], "TemporallyDocumentDurability"),
		QuestionnaireUUID:      Field(doc, "questionnaireUuid"),
		QuestionnaireEventUUID: utils.ToNullableString(doc["questionnaireEventUuid"]),
		TemplateID:             Field(doc, "templateId"),
		FormatUUID:             utils.ToNullableString(doc["formatUuid"]),
		ContentType:            utils.ToStringOr(doc["contentType"], "application/octet-stream"),
		CreatorUUID:            utils.ToNullableString(doc["creatorUuid"]),
		RetrievedAt:            nullableTime(doc["retrievedAt"]),
		FinishedAt:             nullableTime(doc["finishedAt"]),
		CreatedAt:              utils.ToTime(doc["createdAt"], now),
	}, nil
}

func nullableTime(val interface{}) interface{} {
	if val == nil {
		return nil
	}
	return utils.ToTime(val, time.Time{})
}

func (d Document) GetID() string { return d.UUID }

func (d Document) Columns() []string {
	return []string{
		"uuid",
		"name",
		"state",
		"durability",
		"questionnaire_uuid",
		"questionnaire_event_uuid",
		"template_id",
		"format_uuid",
		"content_type",
		"creator_uuid",
		"retrieved_at",
		"finished_at",
		"created_at",
	}
}

func (d Document) Values() []interface{} {
	return []interface{}{
		d.UUID,
		d.Name,
		d.State,
		d.Durability,
		d.QuestionnaireUUID,
		d.QuestionnaireEventUUID,
		d.TemplateID,
		d.FormatUUID,
		d.ContentType,
		d.CreatorUUID,
		d.RetrievedAt,
		d.FinishedAt,
		d.CreatedAt,
	}
}
