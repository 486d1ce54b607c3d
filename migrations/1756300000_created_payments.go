package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("payments")

		collection.Fields.Add(
			&core.TextField{Name: "payer", Required: true, Max: 255},
			&core.TextField{Name: "payer_name", Max: 255},
			&core.NumberField{Name: "amount", Required: true, OnlyInt: true},
			&core.SelectField{
				Name:      "method",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"card", "bank_transfer"},
			},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "review_pending", "success", "failed"},
			},
			&core.TextField{Name: "gateway_ref", Max: 255},
			&core.TextField{Name: "proof_ref", Max: 500},
			&core.TextField{Name: "reject_reason", Max: 500},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_payments_status", false, "status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
