package mcpserver

// FormatContractURI identifies the data file contract resource.
const FormatContractURI = "epiledger://csv-format"

// FormatContract describes the data file layout and the record rules that
// LLM consumers should follow when adding records.
const FormatContract = `# epiledger Data Format Contract

Records are kept in a single UTF-8 CSV file, one record per row, in the order
they were added.

## Layout

` + "```" + `csv
City,Date,Cases,Recovered,Deaths
Lagos,2021-01-05,700,12,3
"Paris, FR",2021-01-05,1200,40,9
` + "```" + `

## Rules

1. **The header is mandatory** and must be exactly ` + "`" + `City,Date,Cases,Recovered,Deaths` + "`" + `.
2. **City** is free text and must not be empty. Values containing a comma are quoted.
3. **Date** is stored as ` + "`" + `YYYY-MM-DD` + "`" + `. When adding a record any common written
   form is accepted (` + "`" + `2021-01-05` + "`" + `, ` + "`" + `Jan 5, 2021` + "`" + `, ` + "`" + `01/05/2021` + "`" + `, ` + "`" + `yesterday` + "`" + `,
   ` + "`" + `3 days ago` + "`" + `) and normalized on save.
4. **Cases, Recovered, Deaths** are non-negative integers.
5. **Duplicates are kept.** (city, date) is not a key; the same pair may appear twice.
6. Records are never edited or removed through epiledger; every add rewrites the file.

## Analyses

- **Risk zones** use the FIRST record seen for each city: High above 1000 cases,
  Medium above 500, Low otherwise. Later records never change a city's tier.
- **Hotspot** is the city with the highest sum of cases over all its records.
  Ties go to the city that appears first.
- **Trend series** list each city's (date, cases) pairs in file order, not sorted by date.
`
