package mcpserver

// UsageGuide describes units and conventions of the redoxflux tools for
// LLM consumers.
const UsageGuide = `# redoxflux tool guide

## Units

- Fluxes and production rates: mmol/gDW/h.
- Potentials: volts vs SHE. Cathodic (reducing) potentials are negative.
- Cofactor concentrations: mM.
- Electrical power: W. Energy efficiency: percent.

## Conventions

1. Products are catalog keys (call ` + "`list_products`" + `), not metabolite ids.
2. ` + "`system`" + ` is ` + "`cell_free`" + ` (growth and maintenance disabled, the default)
   or ` + "`cellular`" + ` (optionally with ` + "`growth_floor`" + `).
3. Uptake is the positive amount of substrate taken up; 0 selects the catalog default.
4. Knockout candidates that are not in the network are reported as warnings, never errors.
5. A sweep tolerates failing points; it fails only when no potential could be evaluated.
6. Ties between potentials are resolved towards the smallest |E|.

## Statuses

- Optimization: ` + "`optimal`, `infeasible`, `unbounded`, `error`" + `.
- Enhancement: ` + "`enhanced`, `failed`" + `; the rate limiting factor is
  ` + "`cofactor_regeneration`" + ` or ` + "`enzymatic`" + `.
`
