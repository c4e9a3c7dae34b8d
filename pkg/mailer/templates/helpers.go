package templates

// Brand carries the company details shown in every email footer.
type Brand struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
}

// Option pattern
type Option func(*EmailData)

func WithLocale(locale string) Option { return func(d *EmailData) { d.Locale = locale } }

func NewBaseEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:  name,
		Email: email,
		Type:  typ,

		AppName:        b.AppName,
		CompanyName:    b.CompanyName,
		CompanyAddress: b.CompanyAddress,
		LogoURL:        b.LogoURL,
		SupportURL:     b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewVerifyCodeData builds the data for the verify_code template.
func NewVerifyCodeData(b Brand, name, email, code string, opts ...Option) EmailData {
	d := NewBaseEmailData(b, VerifyCode, name, email, opts...)
	d.Code = code
	return d
}
