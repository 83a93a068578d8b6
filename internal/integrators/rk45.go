package integrators

// Tableau is an explicit embedded Runge-Kutta pair. Stage i is evaluated
// at t + Nodes[i]*h using the weights in Coupling[i]; High holds the
// propagating solution weights and Err the difference between the high and
// low order weights.
type Tableau struct {
	Name     string
	Order    int
	Nodes    []float64
	Coupling [][]float64
	High     []float64
	Err      []float64
}

func (tb *Tableau) Stages() int { return len(tb.Nodes) }

// CashKarp is the 4(5) pair of Cash & Karp, the default stepper.
var CashKarp = &Tableau{
	Name:  "rkck",
	Order: 5,
	Nodes: []float64{0, 1.0 / 5.0, 3.0 / 10.0, 3.0 / 5.0, 1.0, 7.0 / 8.0},
	Coupling: [][]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{3.0 / 10.0, -9.0 / 10.0, 6.0 / 5.0},
		{-11.0 / 54.0, 5.0 / 2.0, -70.0 / 27.0, 35.0 / 27.0},
		{1631.0 / 55296.0, 175.0 / 512.0, 575.0 / 13824.0, 44275.0 / 110592.0, 253.0 / 4096.0},
	},
	High: []float64{37.0 / 378.0, 0, 250.0 / 621.0, 125.0 / 594.0, 0, 512.0 / 1771.0},
	Err: []float64{
		37.0/378.0 - 2825.0/27648.0,
		0,
		250.0/621.0 - 18575.0/48384.0,
		125.0/594.0 - 13525.0/55296.0,
		-277.0 / 14336.0,
		512.0/1771.0 - 1.0/4.0,
	},
}

// Dormand-Prince coefficients (RK45)
var (
	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// DormandPrince is the 5(4) pair; the seventh stage is evaluated at the
// propagated solution.
var DormandPrince = &Tableau{
	Name:  "rkdp",
	Order: 5,
	Nodes: []float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1.0, 1.0},
	Coupling: [][]float64{
		{},
		{b21},
		{b31, b32},
		{b41, b42, b43},
		{b51, b52, b53, b54},
		{b61, b62, b63, b64, b65},
		{c1, 0, c3, c4, c5, c6},
	},
	High: []float64{c1, 0, c3, c4, c5, c6, 0},
	Err:  []float64{dc1, 0, dc3, dc4, dc5, dc6, dc7},
}

// Tableaus lists the available embedded pairs by name.
var Tableaus = map[string]*Tableau{
	CashKarp.Name:      CashKarp,
	DormandPrince.Name: DormandPrince,
}
