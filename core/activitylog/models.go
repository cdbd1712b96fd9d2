package activitylog

import (
	"strconv"
	"time"

	"github.com/invigilo/invigilo/core/entity"
)

// ActivityType enumerates auditable user activities.
type ActivityType string

const (
	ActivityCreate         ActivityType = "CREATE"
	ActivityModify         ActivityType = "MODIFY"
	ActivityDelete         ActivityType = "DELETE"
	ActivityActivate       ActivityType = "ACTIVATE"
	ActivityDeactivate     ActivityType = "DEACTIVATE"
	ActivityPasswordChange ActivityType = "PASSWORD_CHANGE"
	ActivityExport         ActivityType = "EXPORT"
	ActivityLogin          ActivityType = "LOGIN"
	ActivityLogout         ActivityType = "LOGOUT"
)

// Log is one audit record of an administrative action. Username is a
// snapshot: the record stays meaningful after the account is deleted.
type Log struct {
	ID            int64        `json:"id" db:"id"`
	InstitutionID int64        `json:"institution_id" db:"institution_id"`
	UserUUID      string       `json:"user_uuid" db:"user_uuid"`
	Username      string       `json:"username" db:"username"`
	Timestamp     int64        `json:"timestamp" db:"timestamp"` // UTC millis
	ActivityType  ActivityType `json:"activity_type" db:"activity_type"`
	TargetType    entity.Type  `json:"entity_type" db:"entity_type"`
	EntityID      string       `json:"entity_id" db:"entity_id"`
	Message       string       `json:"message,omitempty" db:"message"`
}

var _ entity.GrantEntity = Log{}

func (l Log) ModelID() string           { return strconv.FormatInt(l.ID, 10) }
func (l Log) EntityType() entity.Type   { return entity.TypeUserActivityLog }
func (l Log) EntityName() string        { return string(l.ActivityType) + " " + string(l.TargetType) + " " + l.EntityID }
func (l Log) GrantInstitutionID() int64 { return l.InstitutionID }
func (l Log) GrantOwnerID() string      { return "" }

func (l Log) Time() time.Time {
	return time.UnixMilli(l.Timestamp).UTC()
}

// Filter attribute names specific to activity logs.
const (
	FilterAttrUserUUID     = "user_uuid"
	FilterAttrActivityType = "activity_type"
	FilterAttrEntityType   = "entity_type"
)
