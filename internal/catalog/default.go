package catalog

// DefaultVersion identifies the built-in catalog.
const DefaultVersion = "builtin-1"

// DefaultWeights are the structural signal weights of the built-in catalog.
func DefaultWeights() Weights {
	return Weights{
		ExcessiveSubdomains: 1,
		NonStandardPort:     1,
		Punycode:            2,
		SuspiciousLinks:     2,
		Obfuscation:         2,
		RecentlyRegistered:  2,
		SensitiveForm:       2,
	}
}

// DefaultDefinition returns a fresh copy of the built-in catalog definition.
func DefaultDefinition() Definition {
	return Definition{
		Version: DefaultVersion,
		Weights: DefaultWeights(),
		Categories: []CategoryDef{
			{Name: InsecureTransport, Weight: 2},
			{
				Name:   ScholarshipScams,
				Weight: 4,
				Phrase: true,
				Keywords: []string{
					"free scholarship", "guaranteed scholarship", "instant scholarship",
					"scholarship winner", "scholarship guaranteed", "guaranteed admission",
					"admission assured", "urgent scholarship", "limited scholarship",
					"study abroad free", "congratulations you have won",
					"your application is approved", "student aid program",
				},
				Patterns: []string{
					`nigeria.*scholarship.*free`,
					`guaranteed.*scholarship.*nigeria`,
					`instant.*admission.*nigeria`,
					`free.*university.*admission`,
					`no.*exam.*required.*scholarship`,
					`100%.*scholarship.*guarantee`,
				},
			},
			{
				Name:            RegionalTerminology,
				Weight:          3,
				Phrase:          true,
				EscalateWith:    MoneyTransfer,
				EscalatedWeight: 5,
				Keywords: []string{
					"nigeria", "nigerian government", "federal ministry", "tetfund",
					"npower", "jamb scholarship", "jamb result", "waec scholarship",
					"waec result", "neco scholarship", "nnpc scholarship", "nnpc recruitment",
					"ptf scholarship", "ptdf scholarship", "nddc scholarship",
					"petroleum trust fund", "inec recruitment", "cbn recruitment",
					"presidential scholarship", "governors scholarship",
					"lagos state scholarship", "kano state scholarship",
					"rivers state scholarship", "ogun state scholarship",
				},
			},
			{
				Name:   FinancialFraud,
				Weight: 3,
				Phrase: true,
				Keywords: []string{
					"instant money", "guaranteed loan", "easy cash", "quick loan",
					"no collateral", "emergency loan", "same day loan", "payday loan",
					"cash advance", "loan approved", "credit repair", "debt relief",
					"easy money", "quick cash", "free money", "instant cash",
				},
			},
			{
				Name:   InvestmentScams,
				Weight: 3,
				Phrase: true,
				Keywords: []string{
					"investment opportunity", "crypto trading", "forex trading",
					"get rich quick", "guaranteed returns", "high yield",
					"bitcoin investment", "trading signals", "profit guaranteed",
				},
			},
			{
				Name:   WorkScams,
				Weight: 2,
				Phrase: true,
				Keywords: []string{
					"work from home", "make money online", "make money fast",
					"earn from home", "no experience required", "easy job",
					"online jobs", "part time income", "remote work opportunity",
				},
			},
			{
				Name:   UrgencyPressure,
				Weight: 1,
				Phrase: true,
				Keywords: []string{
					"urgent", "hurry", "limited time", "expires soon", "act now",
					"last chance", "deadline today", "offer expires", "final notice",
					"dont miss out", "do not tell anyone", "keep secret",
				},
			},
			{
				Name:   MoneyTransfer,
				Weight: 3,
				Phrase: true,
				Keywords: []string{
					"send money", "transfer funds", "processing fee", "registration fee",
					"application fee", "pay processing fee", "western union", "money gram",
					"bitcoin payment", "gift card payment", "itunes card", "google play card",
					"bank details required", "account information needed",
				},
			},
			{
				Name:   Phishing,
				Weight: 3,
				Phrase: true,
				Keywords: []string{
					"verify account", "verify your account", "account suspended",
					"confirm identity", "confirm your identity", "update information",
					"security alert", "login required",
				},
				Patterns: []string{
					`login.*verify.*account`,
					`suspended.*account.*verify`,
					`urgent.*action.*required`,
					`click.*here.*immediately`,
				},
			},
			{
				Name:   SensitiveDataRequest,
				Weight: 2,
				Keywords: []string{
					"bank account", "account number", "credit card", "card number",
					"cvv", "ssn", "social security", "passport number", "driver license",
					"nin", "bvn", "mothers maiden name", "place of birth", "blood type",
					"atm pin", "routing number", "date of birth", "security question",
					"national identity number", "bank verification number",
					"fingerprint",
				},
			},
			{
				Name:   FinancialInstrument,
				Weight: 3,
				Keywords: []string{
					"bank account", "account number", "credit card", "card number",
					"debit card", "cvv", "routing number", "iban", "atm pin",
					"sort code", "bvn", "payment",
				},
			},
			{
				Name:     SuspiciousTLD,
				Weight:   2,
				Keywords: []string{".tk", ".ml", ".ga", ".cf", ".gq", ".pw", ".top", ".click"},
			},
			{
				Name:   URLShortener,
				Weight: 2,
				Keywords: []string{
					"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly",
					"short.link", "tiny.cc", "buff.ly", "is.gd",
				},
			},
			{
				Name:     SuspiciousScriptHost,
				Weight:   2,
				Keywords: []string{"malware", "phishing", "scam", "fraud"},
			},
			{
				Name:     DownloadExtension,
				Weight:   1,
				Keywords: []string{".exe", ".zip", ".rar", ".msi", ".apk", ".scr", ".bat", ".dmg"},
			},
			{
				Name:     OfficialImagery,
				Weight:   1,
				Keywords: []string{"government", "official", "seal", "logo"},
			},
			{
				Name:     DeceptiveImagery,
				Weight:   2,
				Keywords: []string{"fake", "scam", "phishing"},
			},
			{
				Name:   KnownScamHost,
				Weight: 6,
				Keywords: []string{
					"fakescholarship.ng", "free-scholarship-nigeria.com",
					"guaranteed-admission.ng", "instant-scholarship.com",
					"easy-university-admission.ng", "scholarship-scam.com",
					"fake-education.ng",
				},
			},
		},
	}
}

// Default compiles the built-in catalog.
func Default() *Catalog {
	return MustCompile(DefaultDefinition())
}
