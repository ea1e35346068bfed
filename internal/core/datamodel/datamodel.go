package datamodel

import (
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	locationDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/location"
	messageDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/message"
	reminderDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/reminder"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
)

// All lists every row type in dependency order. The sqlite driver and the
// repository tests AutoMigrate these; postgres goes through db/migrations.
func All() []interface{} {
	return []interface{}{
		&userDatamodel.User{},
		&locationDatamodel.Location{},
		&inspectionDatamodel.Inspection{},
		&messageDatamodel.Message{},
		&reminderDatamodel.Reminder{},
	}
}
