package seed

const aeeStudent = "EMERSON GABRIEL NUNES RODRIGUES"

var roster = []string{
	"ANA JULIA SOUSA DA SILVA BRITO",
	"ANNA GABRIELA DO CARMO OLIVEIRA",
	"ARTHUR SOUSA DE OLIVEIRA",
	"BERNARDO MARTINS NUNES",
	"DAVI IARLEY MOREIRA E SILVA",
	"DAVI LUIZ DA SILVA PAIVA",
	"EMERSON GABRIEL NUNES RODRIGUES",
	"GEOVANNA BARROSO FERREIRA",
	"GUSTAVO SILVA LIMA",
	"HAVYLLA HELOIZA PINHEIRO COSTA",
	"HELENA KETELLEN PINTO DO NASCIMENTO",
	"INGRID LORRANY DA SILVA SOUZA",
	"JOAO MIGUEL DA SILVA DE OLIVEIRA",
	"JOSE VICTOR DA SILVA LOURENCO",
	"KAUANY KELLEN DE OLIVEIRA SAMPAIO",
	"KETLEY MARIA PEREIRA MARQUES DE PAULO",
	"MARIA CECILIA SALUSTIANO COSTA",
	"MARIA JULIA LIMA VIANA",
	"MARIA JULIA NOBRE DE OLIVEIRA",
	"MARIA LUIZA GONCALVES CORREIA",
	"MATHEUS DE SOUSA SANTOS",
	"NATANAEL ALBINO MELO",
	"NEEMIAS MEDEIROS DE LIMA SILVA",
	"OTAVIO AIRTON DUTRA DE LIMA",
	"PEDRO ERNESTO RODRIGUES PAIVA",
	"RIAN RIBEIRO DA SILVA ALVES",
	"RONALD CAUAN BARBOZA ALVES",
	"SAMUEL DA SILVA COSTA",
	"THIAGO MENDES DE SA",
	"TICIANY BARBOSA RODRIGUES",
	"VINICIUS NUNES SANTIAGO",
	"WILLAME RYAN BITTENCOURT OLIVEIRA",
	"YASMIM SILVA CAVALCANTE",
	"ADRYAN VICTOR RODRIGUES DE SOUSA",
	"ALIKA VITORIA DA SILVA LOPES",
	"ANA JULIA DO NASCIMENTO NOBRE",
	"DAVI LUCCA DE SOUSA CONCEICAO",
	"DAVI LUIZ PEREIRA DA SILVA",
	"DEBORA FERREIRA BARBOSA MONTE",
	"EDVAN ERICK DE SOUZA QUEIROZ",
	"ERICK DAVID DE SOUZA GOES",
	"FRANCISCO ISMAEL SANTOS PEREIRA",
	"GABRIEL ALIXANDRE DE LIMA GOMES",
	"GLAUBER DE OLIVEIRA MORAIS",
	"GUSTAVO GOMES FREITAS",
}
