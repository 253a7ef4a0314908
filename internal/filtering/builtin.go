package filtering

// usStates holds the 50 state abbreviations plus DC.
var usStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {}, "DE": {}, "FL": {}, "GA": {},
	"HI": {}, "ID": {}, "IL": {}, "IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {},
	"MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {}, "NH": {}, "NJ": {},
	"NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {},
	"SD": {}, "TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {}, "WY": {},
	"DC": {},
}

var (
	usCountryTokens = []string{"UNITED STATES", "USA", "US"}
	remoteTokens    = []string{"REMOTE", "HYBRID"}

	nonUSLocationTokens = []string{
		"CANADA", "UNITED KINGDOM", "UK", "ENGLAND", "LONDON", "EUROPE", "EMEA", "APAC", "LATAM",
		"INDIA", "CHINA", "SINGAPORE", "GERMANY", "FRANCE", "SPAIN", "ITALY", "JAPAN", "KOREA",
		"AUSTRALIA", "IRELAND", "NETHERLANDS", "SWITZERLAND",
	}

	pipelineTokens         = []string{"PIPELINE"}
	pipelineBusinessTokens = []string{"COMMERCIAL", "MARKET ACCESS", "STRATEGY", "OPERATIONS", "SALES", "MARKETING"}

	// builtinSoftTitles are always part of title_filter.soft_include_any.
	builtinSoftTitles = []string{
		"BIOINFORMATICS",
		"BIOINFORMATICS SCIENTIST",
		"BIOINFORMATICS ANALYST",
		"BIOINFORMATICS ENGINEER",
		"COMPUTATIONAL BIOLOGY",
		"COMPUTATIONAL BIOLOGIST",
		"COMPUTATIONAL SCIENTIST",
		"COMPUTATIONAL GENOMICS",
		"GENOMICS",
		"GENOMICS SCIENTIST",
		"GENOMIC",
		"GENOMIC DATA SCIENTIST",
		"BIOMEDICAL DATA SCIENTIST",
		"TRANSCRIPTOMICS",
		"SINGLE CELL",
		"SINGLE-CELL",
		"OMICS",
		"MULTI-OMICS",
		"NGS",
		"SEQUENCING",
		"PIPELINE",
		"WORKFLOW",
		"ALGORITHMS SCIENTIST (GENOMICS)",
	}

	// weakDomainSignals are word fragments hinting at genomics work.
	weakDomainSignals = []string{"GENOM", "RNA", "OMICS", "SEQUENC", "TRANSCRIPT", "VARIANT", "SINGLE CELL"}

	// bioContextTerms confirm a weak signal found in a description.
	bioContextTerms = []string{
		"GENE", "GENOM", "GENOME", "DNA", "RNA", "PROTEIN", "CELL", "SEQUENC", "OMICS", "BIOINFORMATICS",
		"TRANSCRIPTOMICS", "NGS", "ASSAY", "EXPRESSION", "VARIANT", "PATHWAY", "CLINICAL", "MICROBIOME",
	}
)
