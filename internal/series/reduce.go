package series

// DefaultBuckets é o número padrão de grupos da redução
const DefaultBuckets = 25

// Reduce agrupa a série em até n faixas contíguas de índices e devolve a
// média aritmética de T, V e Ratio de cada faixa. Faixas vazias (len < n)
// não geram saída.
//
// A faixa i cobre [i*len/n, (i+1)*len/n). Nenhuma faixa passa de ceil(len/n)
// elementos e, com len >= n, todas as n faixas são preenchidas.
func Reduce(samples []Sample, n int) []Sample {
	if n <= 0 {
		n = DefaultBuckets
	}

	length := len(samples)
	result := make([]Sample, 0, n)

	for i := 0; i < n; i++ {
		start := i * length / n
		end := (i + 1) * length / n
		if end <= start {
			continue
		}

		var sum Sample
		for _, s := range samples[start:end] {
			sum.T += s.T
			sum.V += s.V
			sum.Ratio += s.Ratio
		}

		count := float64(end - start)
		result = append(result, Sample{
			T:     sum.T / count,
			V:     sum.V / count,
			Ratio: sum.Ratio / count,
		})
	}

	return result
}

// ReduceWithEndpoints reduz a série e acrescenta a primeira e a última
// amostra originais, sem alteração, nas pontas do resultado.
func ReduceWithEndpoints(samples []Sample, n int) []Sample {
	if len(samples) == 0 {
		return nil
	}

	reduced := Reduce(samples, n)
	out := make([]Sample, 0, len(reduced)+2)
	out = append(out, samples[0])
	out = append(out, reduced...)
	out = append(out, samples[len(samples)-1])
	return out
}
