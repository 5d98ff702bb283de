package Models

import (
	"gorm.io/gorm"
)

// Permission ranks, ordered. Higher ranks inherit everything below them.
const (
	PermissionBasic       = 1
	PermissionSectorAdmin = 2
	PermissionSupervisor  = 3
	PermissionAdmin       = 4
	PermissionSuperAdmin  = 5
)

type Sector struct {
	gorm.Model
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

type User struct {
	gorm.Model
	Name       string   `json:"name"`
	Email      string   `json:"email" gorm:"uniqueIndex;not null"`
	Password   []byte   `json:"-"`
	Permission int      `json:"permission" gorm:"default:1"`
	Sectors    []Sector `json:"sectors" gorm:"many2many:user_sectors;"`
}

// SectorIDs returns the ids of the sectors the user belongs to.
func (u *User) SectorIDs() []uint {
	ids := make([]uint, 0, len(u.Sectors))
	for _, s := range u.Sectors {
		ids = append(ids, s.ID)
	}
	return ids
}

func (u *User) InSector(sectorID uint) bool {
	for _, s := range u.Sectors {
		if s.ID == sectorID {
			return true
		}
	}
	return false
}
