package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		payments, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "payment",
				Required:      true,
				MaxSelect:     1,
				CollectionId:  payments.Id,
				CascadeDelete: false,
			},
			&core.TextField{Name: "holder", Required: true, Max: 255},
			&core.TextField{Name: "holder_contact", Max: 255},
			&core.SelectField{
				Name:      "class",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"contestant", "audience"},
			},
			&core.TextField{Name: "code", Required: true, Max: 32},
			&core.TextField{Name: "scan_payload", Max: 255},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "verified"},
			},
			&core.NumberField{Name: "party_size", Required: true, OnlyInt: true},
			&core.NumberField{Name: "admitted_count", OnlyInt: true},
			&core.DateField{Name: "admitted_at"},
			&core.BoolField{Name: "reminder_sent"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// codes are the admission credential, duplicates must be impossible
		collection.AddIndex("idx_tickets_code", true, "code", "")
		collection.AddIndex("idx_tickets_payment", false, "payment", "")

		if err := app.Save(collection); err != nil {
			return err
		}

		// back-reference from a bundled guest pass to the pass it was sold
		// with; added after the initial save because a self-relation only
		// validates against an already-persisted collection
		collection.Fields.Add(
			&core.RelationField{
				Name:         "primary_ticket",
				MaxSelect:    1,
				CollectionId: collection.Id,
			},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
