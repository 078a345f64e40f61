package accounts

import "github.com/daftar-dev/daftar/internal/model"

// DefaultChart returns a compact Plan Comptable Marocain covering the accounts
// the ledger posts to by default. Parents precede their children.
func DefaultChart() []Definition {
	const (
		asset     = model.AccountTypeAsset
		liability = model.AccountTypeLiability
		equity    = model.AccountTypeEquity
		revenue   = model.AccountTypeRevenue
		expense   = model.AccountTypeExpense
	)
	return []Definition{
		// Classe 1 - Financement permanent
		{Code: "11", Name: "Capitaux propres", Class: 1, Type: equity},
		{Code: "1111", Name: "Capital social", Class: 1, Type: equity, ParentCode: "11"},
		{Code: "1140", Name: "Réserve légale", Class: 1, Type: equity, ParentCode: "11"},
		{Code: "1161", Name: "Report à nouveau", Class: 1, Type: equity, ParentCode: "11"},
		{Code: "1191", Name: "Résultat net de l'exercice", Class: 1, Type: equity, ParentCode: "11"},
		{Code: "14", Name: "Dettes de financement", Class: 1, Type: liability},
		{Code: "1481", Name: "Emprunts auprès des établissements de crédit", Class: 1, Type: liability, ParentCode: "14"},

		// Classe 2 - Actif immobilisé
		{Code: "23", Name: "Immobilisations corporelles", Class: 2, Type: asset},
		{Code: "2332", Name: "Matériel et outillage", Class: 2, Type: asset, ParentCode: "23"},
		{Code: "2340", Name: "Matériel de transport", Class: 2, Type: asset, ParentCode: "23"},
		{Code: "2351", Name: "Mobilier de bureau", Class: 2, Type: asset, ParentCode: "23"},
		{Code: "2355", Name: "Matériel informatique", Class: 2, Type: asset, ParentCode: "23"},

		// Classe 3 - Actif circulant
		{Code: "31", Name: "Stocks", Class: 3, Type: asset},
		{Code: "3111", Name: "Marchandises", Class: 3, Type: asset, ParentCode: "31"},
		{Code: "34", Name: "Créances de l'actif circulant", Class: 3, Type: asset},
		{Code: "3421", Name: "Clients", Class: 3, Type: asset, ParentCode: "34"},
		{Code: "3455", Name: "État - TVA récupérable", Class: 3, Type: asset, ParentCode: "34"},
		{Code: "3497", Name: "Comptes transitoires ou d'attente - débiteurs", Class: 3, Type: asset, ParentCode: "34"},

		// Classe 4 - Passif circulant
		{Code: "44", Name: "Dettes du passif circulant", Class: 4, Type: liability},
		{Code: "4411", Name: "Fournisseurs", Class: 4, Type: liability, ParentCode: "44"},
		{Code: "4432", Name: "Rémunérations dues au personnel", Class: 4, Type: liability, ParentCode: "44"},
		{Code: "4441", Name: "Caisse nationale de sécurité sociale", Class: 4, Type: liability, ParentCode: "44"},
		{Code: "4453", Name: "État - impôt sur le revenu", Class: 4, Type: liability, ParentCode: "44"},
		{Code: "4455", Name: "État - TVA facturée", Class: 4, Type: liability, ParentCode: "44"},
		{Code: "4456", Name: "État - TVA due", Class: 4, Type: liability, ParentCode: "44"},

		// Classe 5 - Trésorerie
		{Code: "51", Name: "Trésorerie - actif", Class: 5, Type: asset},
		{Code: "5141", Name: "Banques", Class: 5, Type: asset, ParentCode: "51"},
		{Code: "5161", Name: "Caisse", Class: 5, Type: asset, ParentCode: "51"},

		// Classe 6 - Charges
		{Code: "61", Name: "Charges d'exploitation", Class: 6, Type: expense},
		{Code: "6111", Name: "Achats de marchandises", Class: 6, Type: expense, ParentCode: "61"},
		{Code: "6131", Name: "Locations et charges locatives", Class: 6, Type: expense, ParentCode: "61"},
		{Code: "6136", Name: "Rémunérations d'intermédiaires et honoraires", Class: 6, Type: expense, ParentCode: "61"},
		{Code: "6145", Name: "Frais postaux et de télécommunications", Class: 6, Type: expense, ParentCode: "61"},
		{Code: "6171", Name: "Rémunérations du personnel", Class: 6, Type: expense, ParentCode: "61"},
		{Code: "6174", Name: "Charges sociales", Class: 6, Type: expense, ParentCode: "61"},
		{Code: "63", Name: "Charges financières", Class: 6, Type: expense},
		{Code: "6311", Name: "Intérêts des emprunts et dettes", Class: 6, Type: expense, ParentCode: "63"},
		{Code: "67", Name: "Impôts sur les résultats", Class: 6, Type: expense},
		{Code: "6701", Name: "Impôts sur les bénéfices", Class: 6, Type: expense, ParentCode: "67"},

		// Classe 7 - Produits
		{Code: "71", Name: "Produits d'exploitation", Class: 7, Type: revenue},
		{Code: "7111", Name: "Ventes de marchandises au Maroc", Class: 7, Type: revenue, ParentCode: "71"},
		{Code: "7124", Name: "Ventes de services produits au Maroc", Class: 7, Type: revenue, ParentCode: "71"},
		{Code: "73", Name: "Produits financiers", Class: 7, Type: revenue},
		{Code: "7381", Name: "Intérêts et produits assimilés", Class: 7, Type: revenue, ParentCode: "73"},
	}
}
