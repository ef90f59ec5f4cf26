package catalog

import "github.com/RockaiDev/bariqe-dashboard/internal/domain"

func str(name, label string) domain.FieldDefinition {
	return domain.FieldDefinition{Name: name, Label: label, Type: domain.FieldTypeString}
}

func required(f domain.FieldDefinition) domain.FieldDefinition {
	f.Required = true
	return f
}

func enum(f domain.FieldDefinition, values ...string) domain.FieldDefinition {
	f.Enum = values
	return f
}

func typed(f domain.FieldDefinition, t domain.FieldType) domain.FieldDefinition {
	f.Type = t
	return f
}

// Definitions lists the built-in entities. Field order is worksheet column order.
func Definitions() []domain.EntityDefinition {
	return []domain.EntityDefinition{
		{
			Name:       "customer",
			Collection: "customers",
			Slug:       Customers,
			Worksheet:  "Customers",
			Fields: []domain.FieldDefinition{
				required(str("customerName", "Customer Name")),
				required(str("customerEmail", "Email")),
				str("customerPhone", "Phone"),
				str("customerAddress", "Address"),
				enum(str("customerStatus", "Status"), "active", "inactive"),
				str("customerNotes", "Notes"),
			},
			NaturalKey: []string{"customerEmail"},
		},
		{
			Name:       "order",
			Collection: "orders",
			Slug:       Orders,
			Worksheet:  "Orders",
			Fields: []domain.FieldDefinition{
				required(str("orderNumber", "Order Number")),
				required(str("customerName", "Customer Name")),
				str("customerEmail", "Customer Email"),
				{Name: "customerId", Label: "Customer ID", Type: domain.FieldTypeReference, ReferenceCollection: "customers"},
				typed(str("products", "Products"), domain.FieldTypeStrings),
				typed(str("quantity", "Quantity"), domain.FieldTypeInteger),
				typed(str("totalPrice", "Total Price"), domain.FieldTypeFloat),
				required(enum(str("orderStatus", "Status"), "pending", "processing", "shipped", "delivered", "cancelled")),
				typed(str("orderDate", "Order Date"), domain.FieldTypeTimestamp),
				str("notes", "Notes"),
			},
			NaturalKey: []string{"orderNumber"},
		},
		{
			Name:       "contact",
			Collection: "contacts",
			Slug:       Contacts,
			Worksheet:  "Contacts",
			Fields: []domain.FieldDefinition{
				required(str("name", "Name")),
				required(str("email", "Email")),
				str("phone", "Phone"),
				str("subject", "Subject"),
				str("message", "Message"),
				enum(str("contactStatus", "Status"), "new", "read", "replied", "archived"),
			},
			NaturalKey: []string{"email", "subject"},
		},
		{
			Name:       "consultation request",
			Collection: "consultation_requests",
			Slug:       ConsultationRequests,
			Worksheet:  "ConsultationRequests",
			Fields: []domain.FieldDefinition{
				required(str("customerName", "Customer Name")),
				required(str("customerEmail", "Customer Email")),
				str("customerPhone", "Customer Phone"),
				str("consultationType", "Consultation Type"),
				str("message", "Message"),
				typed(str("preferredDate", "Preferred Date"), domain.FieldTypeTimestamp),
				enum(str("consultationStatus", "Status"), "pending", "in_progress", "completed", "cancelled"),
			},
			NaturalKey: []string{"customerEmail"},
		},
		{
			Name:       "event",
			Collection: "events",
			Slug:       Events,
			Worksheet:  "Events",
			Fields: []domain.FieldDefinition{
				required(str("title_en", "Title (EN)")),
				str("title_ar", "Title (AR)"),
				str("content_en", "Content (EN)"),
				str("content_ar", "Content (AR)"),
				required(typed(str("date", "Date"), domain.FieldTypeTimestamp)),
				enum(str("type", "Type"), "event", "news"),
				enum(str("status", "Status"), "draft", "published"),
				typed(str("tags", "Tags"), domain.FieldTypeStrings),
			},
			NaturalKey: []string{"title_en", "date"},
		},
		{
			Name:       "about section",
			Collection: "about_sections",
			Slug:       AboutSections,
			Worksheet:  "About",
			Fields: []domain.FieldDefinition{
				required(str("title_en", "Title (EN)")),
				str("title_ar", "Title (AR)"),
				str("description_en", "Description (EN)"),
				str("description_ar", "Description (AR)"),
				typed(str("order", "Display Order"), domain.FieldTypeInteger),
			},
			NaturalKey: []string{"title_en"},
		},
		{
			Name:       "review",
			Collection: "reviews",
			Slug:       Reviews,
			Worksheet:  "Reviews",
			Fields: []domain.FieldDefinition{
				required(str("client_name_en", "Client Name (EN)")),
				str("client_name_ar", "Client Name (AR)"),
				str("client_company_en", "Company (EN)"),
				str("client_company_ar", "Company (AR)"),
				typed(str("rating", "Rating"), domain.FieldTypeInteger),
				str("comment_en", "Comment (EN)"),
				str("comment_ar", "Comment (AR)"),
			},
			NaturalKey: []string{"client_name_en", "client_company_en"},
		},
	}
}
