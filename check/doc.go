// Package check contains the verification levels for candidate addresses
// (syntax, MX, SMTP) and the Probe that turns their results into a
// confidence tier. DomainChecker vets caller-supplied extra domains.
package check
