// Package manganato implements the providers contracts for the Manganato
// family of sites. All markup knowledge lives in parse.go; the scraper only
// fetches pages and hands the parsed documents over.
package manganato
