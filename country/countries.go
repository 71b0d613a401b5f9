package country

// entry is one country: ISO 3166-1 alpha-3 code, common name, and aliases.
type entry struct {
	Code    string
	Name    string
	Aliases []string
}

var countries = []entry{
	{"AFG", "Afghanistan", nil},
	{"ALB", "Albania", nil},
	{"DZA", "Algeria", nil},
	{"AND", "Andorra", nil},
	{"AGO", "Angola", nil},
	{"ATG", "Antigua and Barbuda", nil},
	{"ARG", "Argentina", nil},
	{"ARM", "Armenia", nil},
	{"AUS", "Australia", nil},
	{"AUT", "Austria", nil},
	{"AZE", "Azerbaijan", nil},
	{"BHS", "Bahamas", []string{"The Bahamas"}},
	{"BHR", "Bahrain", nil},
	{"BGD", "Bangladesh", nil},
	{"BRB", "Barbados", nil},
	{"BLR", "Belarus", nil},
	{"BEL", "Belgium", nil},
	{"BLZ", "Belize", nil},
	{"BEN", "Benin", nil},
	{"BTN", "Bhutan", nil},
	{"BOL", "Bolivia", []string{"Plurinational State of Bolivia"}},
	{"BIH", "Bosnia and Herzegovina", []string{"Bosnia"}},
	{"BWA", "Botswana", nil},
	{"BRA", "Brazil", []string{"Brasil"}},
	{"BRN", "Brunei", []string{"Brunei Darussalam"}},
	{"BGR", "Bulgaria", nil},
	{"BFA", "Burkina Faso", nil},
	{"BDI", "Burundi", nil},
	{"CPV", "Cabo Verde", []string{"Cape Verde"}},
	{"KHM", "Cambodia", nil},
	{"CMR", "Cameroon", nil},
	{"CAN", "Canada", nil},
	{"CAF", "Central African Republic", nil},
	{"TCD", "Chad", nil},
	{"CHL", "Chile", nil},
	{"CHN", "China", []string{"People's Republic of China", "PRC"}},
	{"COL", "Colombia", nil},
	{"COM", "Comoros", nil},
	{"COG", "Congo", []string{"Republic of the Congo", "Congo-Brazzaville"}},
	{"COD", "Democratic Republic of the Congo", []string{"DR Congo", "DRC", "Congo-Kinshasa", "Zaire"}},
	{"CRI", "Costa Rica", nil},
	{"CIV", "Cote d'Ivoire", []string{"Ivory Coast"}},
	{"HRV", "Croatia", nil},
	{"CUB", "Cuba", nil},
	{"CYP", "Cyprus", nil},
	{"CZE", "Czechia", []string{"Czech Republic"}},
	{"DNK", "Denmark", nil},
	{"DJI", "Djibouti", nil},
	{"DMA", "Dominica", nil},
	{"DOM", "Dominican Republic", nil},
	{"ECU", "Ecuador", nil},
	{"EGY", "Egypt", nil},
	{"SLV", "El Salvador", nil},
	{"GNQ", "Equatorial Guinea", nil},
	{"ERI", "Eritrea", nil},
	{"EST", "Estonia", nil},
	{"SWZ", "Eswatini", []string{"Swaziland"}},
	{"ETH", "Ethiopia", nil},
	{"FJI", "Fiji", nil},
	{"FIN", "Finland", nil},
	{"FRA", "France", nil},
	{"GAB", "Gabon", nil},
	{"GMB", "Gambia", []string{"The Gambia"}},
	{"GEO", "Georgia", nil},
	{"DEU", "Germany", []string{"Deutschland"}},
	{"GHA", "Ghana", nil},
	{"GRC", "Greece", nil},
	{"GRD", "Grenada", nil},
	{"GTM", "Guatemala", nil},
	{"GIN", "Guinea", nil},
	{"GNB", "Guinea-Bissau", nil},
	{"GUY", "Guyana", nil},
	{"HTI", "Haiti", nil},
	{"HND", "Honduras", nil},
	{"HUN", "Hungary", nil},
	{"ISL", "Iceland", nil},
	{"IND", "India", nil},
	{"IDN", "Indonesia", nil},
	{"IRN", "Iran", []string{"Islamic Republic of Iran"}},
	{"IRQ", "Iraq", nil},
	{"IRL", "Ireland", nil},
	{"ISR", "Israel", nil},
	{"ITA", "Italy", nil},
	{"JAM", "Jamaica", nil},
	{"JPN", "Japan", nil},
	{"JOR", "Jordan", nil},
	{"KAZ", "Kazakhstan", nil},
	{"KEN", "Kenya", nil},
	{"KIR", "Kiribati", nil},
	{"PRK", "North Korea", []string{"Democratic People's Republic of Korea", "DPRK"}},
	{"KOR", "South Korea", []string{"Republic of Korea", "Korea"}},
	{"XKX", "Kosovo", nil},
	{"KWT", "Kuwait", nil},
	{"KGZ", "Kyrgyzstan", []string{"Kyrgyz Republic"}},
	{"LAO", "Laos", []string{"Lao People's Democratic Republic", "Lao PDR"}},
	{"LVA", "Latvia", nil},
	{"LBN", "Lebanon", nil},
	{"LSO", "Lesotho", nil},
	{"LBR", "Liberia", nil},
	{"LBY", "Libya", nil},
	{"LIE", "Liechtenstein", nil},
	{"LTU", "Lithuania", nil},
	{"LUX", "Luxembourg", nil},
	{"MDG", "Madagascar", nil},
	{"MWI", "Malawi", nil},
	{"MYS", "Malaysia", nil},
	{"MDV", "Maldives", nil},
	{"MLI", "Mali", nil},
	{"MLT", "Malta", nil},
	{"MHL", "Marshall Islands", nil},
	{"MRT", "Mauritania", nil},
	{"MUS", "Mauritius", nil},
	{"MEX", "Mexico", nil},
	{"FSM", "Micronesia", []string{"Federated States of Micronesia"}},
	{"MDA", "Moldova", []string{"Republic of Moldova"}},
	{"MCO", "Monaco", nil},
	{"MNG", "Mongolia", nil},
	{"MNE", "Montenegro", nil},
	{"MAR", "Morocco", nil},
	{"MOZ", "Mozambique", nil},
	{"MMR", "Myanmar", []string{"Burma"}},
	{"NAM", "Namibia", nil},
	{"NRU", "Nauru", nil},
	{"NPL", "Nepal", nil},
	{"NLD", "Netherlands", []string{"Holland", "The Netherlands"}},
	{"NZL", "New Zealand", []string{"Aotearoa"}},
	{"NIC", "Nicaragua", nil},
	{"NER", "Niger", nil},
	{"NGA", "Nigeria", nil},
	{"MKD", "North Macedonia", []string{"Macedonia"}},
	{"NOR", "Norway", nil},
	{"OMN", "Oman", nil},
	{"PAK", "Pakistan", nil},
	{"PLW", "Palau", nil},
	{"PSE", "Palestine", []string{"State of Palestine"}},
	{"PAN", "Panama", nil},
	{"PNG", "Papua New Guinea", nil},
	{"PRY", "Paraguay", nil},
	{"PER", "Peru", nil},
	{"PHL", "Philippines", nil},
	{"POL", "Poland", nil},
	{"PRT", "Portugal", nil},
	{"QAT", "Qatar", nil},
	{"ROU", "Romania", nil},
	{"RUS", "Russia", []string{"Russian Federation"}},
	{"RWA", "Rwanda", nil},
	{"KNA", "Saint Kitts and Nevis", nil},
	{"LCA", "Saint Lucia", nil},
	{"VCT", "Saint Vincent and the Grenadines", nil},
	{"WSM", "Samoa", nil},
	{"SMR", "San Marino", nil},
	{"STP", "Sao Tome and Principe", nil},
	{"SAU", "Saudi Arabia", nil},
	{"SEN", "Senegal", nil},
	{"SRB", "Serbia", nil},
	{"SYC", "Seychelles", nil},
	{"SLE", "Sierra Leone", nil},
	{"SGP", "Singapore", nil},
	{"SVK", "Slovakia", []string{"Slovak Republic"}},
	{"SVN", "Slovenia", nil},
	{"SLB", "Solomon Islands", nil},
	{"SOM", "Somalia", nil},
	{"ZAF", "South Africa", nil},
	{"SSD", "South Sudan", nil},
	{"ESP", "Spain", []string{"Espana"}},
	{"LKA", "Sri Lanka", nil},
	{"SDN", "Sudan", nil},
	{"SUR", "Suriname", nil},
	{"SWE", "Sweden", nil},
	{"CHE", "Switzerland", nil},
	{"SYR", "Syria", []string{"Syrian Arab Republic"}},
	{"TWN", "Taiwan", nil},
	{"TJK", "Tajikistan", nil},
	{"TZA", "Tanzania", []string{"United Republic of Tanzania"}},
	{"THA", "Thailand", nil},
	{"TLS", "Timor-Leste", []string{"East Timor"}},
	{"TGO", "Togo", nil},
	{"TON", "Tonga", nil},
	{"TTO", "Trinidad and Tobago", nil},
	{"TUN", "Tunisia", nil},
	{"TUR", "Turkiye", []string{"Turkey"}},
	{"TKM", "Turkmenistan", nil},
	{"TUV", "Tuvalu", nil},
	{"UGA", "Uganda", nil},
	{"UKR", "Ukraine", nil},
	{"ARE", "United Arab Emirates", []string{"UAE", "Emirates"}},
	{"GBR", "United Kingdom", []string{"UK", "Great Britain", "Britain", "England"}},
	{"USA", "United States", []string{"United States of America", "USA", "US", "America"}},
	{"URY", "Uruguay", nil},
	{"UZB", "Uzbekistan", nil},
	{"VUT", "Vanuatu", nil},
	{"VAT", "Vatican City", []string{"Holy See"}},
	{"VEN", "Venezuela", nil},
	{"VNM", "Vietnam", []string{"Viet Nam"}},
	{"YEM", "Yemen", nil},
	{"ZMB", "Zambia", nil},
	{"ZWE", "Zimbabwe", nil},
	{"GRL", "Greenland", nil},
	{"PRI", "Puerto Rico", nil},
	{"HKG", "Hong Kong", nil},
	{"MAC", "Macao", []string{"Macau"}},
	{"ESH", "Western Sahara", nil},
	{"NCL", "New Caledonia", nil},
	{"PYF", "French Polynesia", nil},
	{"GUF", "French Guiana", nil},
	{"FRO", "Faroe Islands", nil},
	{"BMU", "Bermuda", nil},
	{"CYM", "Cayman Islands", nil},
	{"ABW", "Aruba", nil},
	{"CUW", "Curacao", nil},
	{"GUM", "Guam", nil},
}
