package registry

// Builtin document types. Extraction rules are schema-specific code, not
// runtime data: adding a type requires a redeploy.

func builtinSchemas() []*Schema {
	return []*Schema{
		passportSchema(),
		emiratesIDSchema(),
		laborCardSchema(),
		residenceVisaSchema(),
		visitVisaSchema(),
		homeCountryIDSchema(),
		invoiceSchema(),
		companyLicenseSchema(),
	}
}

var genderEnum = []string{"Male", "Female"}

func passportSchema() *Schema {
	return &Schema{
		Key:      "passport",
		Name:     "Passport",
		Keywords: []string{"passport", "republic", "nationality"},
		Fields: []FieldSpec{
			{Name: "surname", Strategy: StrategyMRZ, Shape: ShapeString, Required: true, MRZField: "surname"},
			{Name: "given_names", Strategy: StrategyMRZ, Shape: ShapeString, MRZField: "given_names"},
			{Name: "passport_number", Strategy: StrategyMRZ, Shape: ShapeString, Required: true, MRZField: "document_number"},
			{Name: "nationality", Strategy: StrategyMRZ, Shape: ShapeString, Required: true, MRZField: "nationality"},
			{Name: "issuing_state", Strategy: StrategyMRZ, Shape: ShapeString, MRZField: "issuing_state"},
			{Name: "date_of_birth", Strategy: StrategyMRZ, Shape: ShapeDate, Required: true, MRZField: "birth_date"},
			{Name: "gender", Strategy: StrategyMRZ, Shape: ShapeEnum, MRZField: "sex", Enum: genderEnum},
			{Name: "expiry_date", Strategy: StrategyMRZ, Shape: ShapeDate, Required: true, MRZField: "expiry_date"},
			{Name: "personal_number", Strategy: StrategyMRZ, Shape: ShapeString, MRZField: "personal_number"},
			{Name: "issue_date", Strategy: StrategyKeyword, Shape: ShapeDate,
				Synonyms: []string{"date of issue", "issue date", "issued on"}},
			{Name: "issue_place", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"place of issue", "issued at", "issuing authority"}},
		},
	}
}

func emiratesIDSchema() *Schema {
	return &Schema{
		Key:      "emirates_id",
		Name:     "Emirates ID",
		Keywords: []string{"federal authority", "identity", "citizenship", "united arab emirates"},
		Fields: []FieldSpec{
			{Name: "id_number", Strategy: StrategyPattern, Shape: ShapeString, Required: true,
				Patterns: []string{`^\d{3}-\d{4}-\d{7}-\d$`, `^784\d{12}$`}},
			{Name: "card_number", Strategy: StrategyMRZ, Shape: ShapeString, MRZField: "document_number"},
			{Name: "full_name", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"name"}},
			{Name: "nationality", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"nationality"}},
			{Name: "date_of_birth", Strategy: StrategyMRZ, Shape: ShapeDate, Required: true, MRZField: "birth_date"},
			{Name: "gender", Strategy: StrategyMRZ, Shape: ShapeEnum, MRZField: "sex", Enum: genderEnum},
			{Name: "expiry_date", Strategy: StrategyMRZ, Shape: ShapeDate, Required: true, MRZField: "expiry_date"},
			{Name: "issue_date", Strategy: StrategyKeyword, Shape: ShapeDate,
				Synonyms: []string{"issuing date", "issue date"}},
		},
	}
}

func laborCardSchema() *Schema {
	return &Schema{
		Key:      "labor_card",
		Name:     "Labor Card",
		Keywords: []string{"work permit", "ministry of human resources", "labour card"},
		Fields: []FieldSpec{
			{Name: "full_name", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"name"}},
			{Name: "work_permit_number", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"work permit no", "permit no", "personal no"}},
			{Name: "profession", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"profession", "occupation", "job title"}},
			{Name: "nationality", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"nationality"}},
			{Name: "company_name", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"establishment", "company", "employer"}},
			{Name: "issue_date", Strategy: StrategyKeyword, Shape: ShapeDate,
				Synonyms: []string{"issue date", "date of issue"}},
			{Name: "expiry_date", Strategy: StrategyKeyword, Shape: ShapeDate, Required: true,
				Synonyms: []string{"expiry date", "valid until"}},
			{Name: "gender", Strategy: StrategyPattern, Shape: ShapeEnum, Enum: genderEnum,
				Patterns: []string{`^(?:M|F|MALE|FEMALE)$`}},
		},
	}
}

func residenceVisaSchema() *Schema {
	return &Schema{
		Key:      "residence_visa",
		Name:     "Residence Visa",
		Keywords: []string{"residence", "visa", "sponsor", "u.i.d"},
		Fields: []FieldSpec{
			{Name: "full_name", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"name", "full name"}},
			{Name: "uid_number", Strategy: StrategyPattern, Shape: ShapeNumber, Required: true,
				Patterns: []string{`^\d{12,15}$`}},
			{Name: "file_number", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"file no", "file number"}},
			{Name: "passport_number", Strategy: StrategyPattern, Shape: ShapeString,
				Patterns: []string{`^[A-Z]{1,2}\d{7,8}$`}},
			{Name: "profession", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"profession", "occupation"}},
			{Name: "sponsor_name", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"sponsor", "sponsor name"}},
			{Name: "issue_date", Strategy: StrategyKeyword, Shape: ShapeDate,
				Synonyms: []string{"issue date", "date of issue"}},
			{Name: "expiry_date", Strategy: StrategyKeyword, Shape: ShapeDate, Required: true,
				Synonyms: []string{"expiry date", "valid until"}},
			{Name: "place_of_issue", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"place of issue", "issued at"}},
		},
	}
}

func visitVisaSchema() *Schema {
	return &Schema{
		Key:      "visit_visa",
		Name:     "Visit Visa",
		Keywords: []string{"visit visa", "tourist visa", "entry permit"},
		Fields: []FieldSpec{
			{Name: "entry_permit_number", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"entry permit no", "permit no", "entry permit"}},
			{Name: "uid_number", Strategy: StrategyPattern, Shape: ShapeNumber,
				Patterns: []string{`^\d{12,15}$`}},
			{Name: "full_name", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"name", "full name"}},
			{Name: "nationality", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"nationality", "citizen of"}},
			{Name: "date_of_birth", Strategy: StrategyKeyword, Shape: ShapeDate,
				Synonyms: []string{"date of birth", "dob", "birth date"}},
			{Name: "place_of_birth", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"place of birth"}},
			{Name: "passport_number", Strategy: StrategyPattern, Shape: ShapeString,
				Patterns: []string{`^[A-Z]{1,2}\d{7,8}$`}},
			{Name: "profession", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"profession", "occupation", "job"}},
		},
	}
}

func homeCountryIDSchema() *Schema {
	return &Schema{
		Key:      "home_country_id",
		Name:     "Home Country ID",
		Keywords: []string{"government of india", "unique identification authority"},
		Fields: []FieldSpec{
			{Name: "aadhaar_number", Strategy: StrategyPattern, Shape: ShapeString, Required: true,
				Patterns: []string{`^\d{4}\s\d{4}\s\d{4}$`, `^\d{12}$`}},
			{Name: "full_name", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"name"}},
			{Name: "date_of_birth", Strategy: StrategyKeyword, Shape: ShapeDate, Required: true,
				Synonyms: []string{"date of birth", "dob", "year of birth"}},
			{Name: "gender", Strategy: StrategyPattern, Shape: ShapeEnum, Enum: genderEnum,
				Patterns: []string{`^(?:MALE|FEMALE|M|F)$`}},
			{Name: "address", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"address"}},
			{Name: "pin_code", Strategy: StrategyPattern, Shape: ShapeNumber,
				Patterns: []string{`^\d{6}$`}},
		},
	}
}

func invoiceSchema() *Schema {
	return &Schema{
		Key:      "invoice",
		Name:     "Invoice",
		Keywords: []string{"invoice", "tax invoice", "commercial invoice", "proforma"},
		Fields: []FieldSpec{
			{Name: "invoice_number", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"invoice no", "invoice number", "invoice #"}},
			{Name: "invoice_date", Strategy: StrategyKeyword, Shape: ShapeDate, Required: true,
				Synonyms: []string{"invoice date", "date"}},
			{Name: "due_date", Strategy: StrategyKeyword, Shape: ShapeDate,
				Synonyms: []string{"due date", "payment due"}},
			// Supplier letterhead sits on the first line of the first page.
			{Name: "supplier_name", Strategy: StrategyFixedOffset, Shape: ShapeString, Page: 0, LineOffset: 0},
			{Name: "customer_name", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"bill to", "customer", "buyer"}},
			{Name: "subtotal", Strategy: StrategyKeyword, Shape: ShapeNumber,
				Synonyms: []string{"subtotal", "sub total", "net amount"}},
			{Name: "tax_amount", Strategy: StrategyKeyword, Shape: ShapeNumber,
				Synonyms: []string{"vat", "tax", "tax amount"}},
			{Name: "total_amount", Strategy: StrategyKeyword, Shape: ShapeNumber, Required: true,
				Synonyms: []string{"total", "grand total", "amount due", "total amount"}},
			{Name: "currency", Strategy: StrategyPattern, Shape: ShapeEnum,
				Enum:     []string{"AED", "USD", "EUR", "GBP", "INR", "SAR"},
				Patterns: []string{`^(?:AED|USD|EUR|GBP|INR|SAR)$`}},
			{Name: "po_number", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"po no", "po number", "purchase order"}},
		},
	}
}

func companyLicenseSchema() *Schema {
	return &Schema{
		Key:      "company_license",
		Name:     "Company License",
		Keywords: []string{"trade license", "commercial license", "professional license", "license no"},
		Fields: []FieldSpec{
			{Name: "license_number", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"license no", "licence no", "license number"}},
			{Name: "license_type", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"license type", "legal type"}},
			{Name: "company_name", Strategy: StrategyKeyword, Shape: ShapeString, Required: true,
				Synonyms: []string{"company name", "trade name", "business name"}},
			{Name: "register_number", Strategy: StrategyKeyword, Shape: ShapeString,
				Synonyms: []string{"register no", "registration no"}},
			{Name: "issue_date", Strategy: StrategyKeyword, Shape: ShapeDate,
				Synonyms: []string{"issue date", "date of issue"}},
			{Name: "expiry_date", Strategy: StrategyKeyword, Shape: ShapeDate, Required: true,
				Synonyms: []string{"expiry date", "valid until", "expires on"}},
		},
	}
}
