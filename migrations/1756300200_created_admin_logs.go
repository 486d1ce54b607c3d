package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("admin_logs")

		collection.Fields.Add(
			&core.TextField{Name: "actor", Required: true, Max: 255},
			&core.TextField{Name: "action", Required: true, Max: 100},
			&core.TextField{Name: "target_type", Max: 50},
			&core.TextField{Name: "target_id", Max: 255},
			&core.TextField{Name: "detail", Max: 1000},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_admin_logs_action", false, "action", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("admin_logs")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
