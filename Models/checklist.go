package Models

import (
	"gorm.io/gorm"
)

// Task types. Completion rules differ per type: normal tasks need notes or
// evidence, answer-driven tasks are complete once the answer is set.
const (
	TaskTypeNormal   = "normal"
	TaskTypeYesNo    = "yes_no"
	TaskTypeDropdown = "dropdown"
)

// Dropdown answers.
const (
	DropdownYes           = "yes"
	DropdownNo            = "no"
	DropdownNotApplicable = "not_applicable"
)

// Media kinds shared by task instructions and evidence files.
const (
	MediaKindImage    = "image"
	MediaKindVideo    = "video"
	MediaKindDocument = "document"
)

type ChecklistTemplate struct {
	gorm.Model
	Name        string          `json:"name" gorm:"not null"`
	Description string          `json:"description" gorm:"type:text"`
	SectorID    uint            `json:"sector_id" gorm:"index;not null"`
	Sector      Sector          `json:"sector"`
	Active      bool            `json:"active" gorm:"default:true"`
	Tasks       []ChecklistTask `json:"tasks" gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
}

type ChecklistTask struct {
	gorm.Model
	TemplateID  uint        `json:"template_id" gorm:"index;not null"`
	Title       string      `json:"title" gorm:"not null"`
	Description string      `json:"description" gorm:"type:text"`
	Required    bool        `json:"required" gorm:"default:false"`
	TaskType    string      `json:"task_type" gorm:"type:varchar(20);default:normal"`
	OrderIndex  int         `json:"order_index" gorm:"default:0"`
	Media       []TaskMedia `json:"media" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// TaskMedia is an instruction attachment on a task definition (how-to image,
// video or document shown to the assignee).
type TaskMedia struct {
	gorm.Model
	TaskID     uint   `json:"task_id" gorm:"index;not null"`
	Kind       string `json:"kind" gorm:"type:varchar(20);not null"`
	FilePath   string `json:"file_path" gorm:"not null"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
}

func (ChecklistTemplate) TableName() string {
	return "checklist_templates"
}

func (ChecklistTask) TableName() string {
	return "checklist_tasks"
}

func ValidTaskType(t string) bool {
	return t == TaskTypeNormal || t == TaskTypeYesNo || t == TaskTypeDropdown
}

func ValidDropdownAnswer(a string) bool {
	return a == DropdownYes || a == DropdownNo || a == DropdownNotApplicable
}
